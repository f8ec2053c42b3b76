package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/NordCoder/Homeroom/internal/domain"
	domainauth "github.com/NordCoder/Homeroom/internal/domain/auth"
	"github.com/NordCoder/Homeroom/internal/domain/principal"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey int

const principalKey ctxKey = 1

func WithPrincipal(ctx context.Context, p *principal.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (*principal.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*principal.Principal)
	return p, ok && p != nil
}

type PrincipalLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*principal.Principal, error)
}

// Gateway turns an Authorization header into an active principal.
type Gateway struct {
	log        *zap.Logger
	codec      TokenCodec
	principals PrincipalLoader
}

func NewGateway(log *zap.Logger, codec TokenCodec, principals PrincipalLoader) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{log: log, codec: codec, principals: principals}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func (g *Gateway) Authenticate(ctx context.Context, authorization string) (*principal.Principal, error) {
	token := bearerToken(authorization)
	if token == "" {
		gatewayRejected.WithLabelValues("missing_token").Inc()
		return nil, domainauth.ErrMissingToken
	}
	claims, err := g.codec.Decode(token)
	if err != nil {
		gatewayRejected.WithLabelValues("token_invalid").Inc()
		return nil, domainauth.ErrTokenInvalid
	}
	p, err := g.principals.FindByID(ctx, claims.Principal())
	if errors.Is(err, domain.ErrNotFound) {
		gatewayRejected.WithLabelValues("unknown_principal").Inc()
		return nil, domainauth.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load principal: %w", err)
	}
	if !p.IsActive {
		gatewayRejected.WithLabelValues("inactive").Inc()
		return nil, domainauth.ErrUnauthorized
	}
	return p, nil
}

// Middleware rejects unauthenticated requests and stores the principal in the request context.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeErr(w, r, g.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
