package auth

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/NordCoder/Homeroom/internal/http/response"
	redisrepo "github.com/NordCoder/Homeroom/internal/repository/redis"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (redisrepo.Decision, error)
}

type RateLimitRule struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// rateLimit keys by route and client IP. Limiter errors let the request through.
func rateLimit(log *zap.Logger, limiter RateLimiter, route string, rule RateLimitRule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || rule.Limit <= 0 || rule.Window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := limiter.Allow(r.Context(), route+":"+clientIP(r), rule.Limit, rule.Window)
			if err != nil {
				log.Warn("rate limiter unavailable", zap.String("route", route), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				rateLimitedTotal.WithLabelValues(route).Inc()
				response.RateLimited(w, d.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// trustedRealIP honours forwarding headers only when the peer is one of the
// configured proxies. Everyone else is keyed on the socket address.
func trustedRealIP(proxies []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(proxies) == 0 {
			return next
		}
		forwarded := middleware.RealIP(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fromProxy(r, proxies) {
				forwarded.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func fromProxy(r *http.Request, proxies []netip.Prefix) bool {
	addr, err := netip.ParseAddr(clientIP(r))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
