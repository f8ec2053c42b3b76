package auth_api_config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/NordCoder/Homeroom/internal/config"
	"github.com/NordCoder/Homeroom/internal/outbox"
	pg "github.com/NordCoder/Homeroom/internal/repository/postgres"
	redisrepo "github.com/NordCoder/Homeroom/internal/repository/redis"
	"github.com/NordCoder/Homeroom/internal/services/auth-api/auth"
)

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// TrustedProxies lists CIDRs or addresses allowed to set X-Forwarded-For.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// ProxyPrefixes parses TrustedProxies. A bare address is a single-host prefix.
func (s Server) ProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

type Auth struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	AccessTTL   time.Duration `mapstructure:"access_ttl"`
	RefreshTTL  time.Duration `mapstructure:"refresh_ttl"`
	ResetWindow time.Duration `mapstructure:"reset_window"`
	BcryptCost  int           `mapstructure:"bcrypt_cost"`
}

type RateLimit struct {
	Enable bool                          `mapstructure:"enable"`
	Rules  map[string]auth.RateLimitRule `mapstructure:"rules"`
}

type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Config struct {
	App       config.App          `mapstructure:"app"`
	Server    Server              `mapstructure:"server"`
	DB        pg.Config           `mapstructure:"db"`
	Redis     redisrepo.Config    `mapstructure:"redis"`
	RateLimit RateLimit           `mapstructure:"rate_limit"`
	Auth      Auth                `mapstructure:"auth"`
	Outbox    outbox.RunnerConfig `mapstructure:"outbox"`
	Kafka     Kafka               `mapstructure:"kafka"`
	OTEL      config.OTEL         `mapstructure:"otel"`
	Log       config.Log          `mapstructure:"log"`
}

// ServiceConfig is the slice of settings the auth services consume.
func (c *Config) ServiceConfig() auth.Config {
	return auth.Config{
		AccessTTL:   c.Auth.AccessTTL,
		RefreshTTL:  c.Auth.RefreshTTL,
		ResetWindow: c.Auth.ResetWindow,
	}
}
