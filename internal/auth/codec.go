package auth

import (
	"errors"
	"time"

	domainauth "github.com/NordCoder/Homeroom/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrTokenInvalid = domainauth.ErrTokenInvalid

var errWeakSecret = errors.New("jwt secret must be at least 32 bytes")

const MinSecretLen = 32

// Claims is the payload of both token kinds; Type tells them apart.
type Claims struct {
	PrincipalID string               `json:"principal_id"`
	Type        domainauth.TokenType `json:"type"`
	jwt.RegisteredClaims
}

func (c *Claims) Principal() uuid.UUID {
	id, _ := uuid.Parse(c.PrincipalID)
	return id
}

// Codec signs and verifies HS256 tokens. It is safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret []byte, now func() time.Time) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, errWeakSecret
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Codec{secret: key, now: now}, nil
}

func (c *Codec) Encode(principalID uuid.UUID, ttl time.Duration) (string, error) {
	return c.sign(principalID, domainauth.TokenAccess, "", ttl)
}

func (c *Codec) EncodeRefresh(principalID uuid.UUID, ttl time.Duration) (token, jti string, err error) {
	jti = uuid.NewString()
	token, err = c.sign(principalID, domainauth.TokenRefresh, jti, ttl)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

func (c *Codec) Decode(token string) (*Claims, error) {
	return c.parse(token, domainauth.TokenAccess)
}

func (c *Codec) DecodeRefresh(token string) (*Claims, error) {
	cl, err := c.parse(token, domainauth.TokenRefresh)
	if err != nil {
		return nil, err
	}
	if cl.ID == "" {
		return nil, ErrTokenInvalid
	}
	return cl, nil
}

func (c *Codec) sign(principalID uuid.UUID, typ domainauth.TokenType, jti string, ttl time.Duration) (string, error) {
	if principalID == uuid.Nil || ttl <= 0 {
		return "", errors.New("encode token: principal id and positive ttl required")
	}
	now := c.now()
	claims := Claims{
		PrincipalID: principalID.String(),
		Type:        typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// parse collapses every failure into ErrTokenInvalid.
func (c *Codec) parse(token string, want domainauth.TokenType) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Type != want {
		return nil, ErrTokenInvalid
	}
	id, err := uuid.Parse(claims.PrincipalID)
	if err != nil || id == uuid.Nil {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
