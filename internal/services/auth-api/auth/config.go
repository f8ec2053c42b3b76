package auth

import (
	"context"
	"time"

	tokens "github.com/NordCoder/Homeroom/internal/auth"

	"github.com/google/uuid"
)

const (
	DefaultAccessTTL   = time.Hour
	DefaultRefreshTTL  = 30 * 24 * time.Hour
	DefaultResetWindow = 2 * time.Hour

	tokenTypeBearer = "Bearer"
	rawTokenBytes   = 32
)

type Config struct {
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	ResetWindow time.Duration
	Now         func() time.Time
}

func (c Config) withDefaults() Config {
	if c.AccessTTL <= 0 {
		c.AccessTTL = DefaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = DefaultRefreshTTL
	}
	if c.ResetWindow <= 0 {
		c.ResetWindow = DefaultResetWindow
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

type TokenCodec interface {
	Encode(principalID uuid.UUID, ttl time.Duration) (string, error)
	EncodeRefresh(principalID uuid.UUID, ttl time.Duration) (token, jti string, err error)
	Decode(token string) (*tokens.Claims, error)
	DecodeRefresh(token string) (*tokens.Claims, error)
}

type Transactor interface {
	WithTx(ctx context.Context, function func(ctx context.Context) error) error
}
