package auth_api_config

import (
	"fmt"
	"time"

	tokens "github.com/NordCoder/Homeroom/internal/auth"
	"github.com/NordCoder/Homeroom/internal/config"
	kafkarepo "github.com/NordCoder/Homeroom/internal/repository/kafka"
	"github.com/NordCoder/Homeroom/internal/services/auth-api/auth"
)

func Load(path string) (*Config, error) {
	v, err := config.NewViper(path)
	if err != nil {
		return nil, err
	}
	config.SetCommonDefaults(v, "auth-api")
	config.SetDBDefaults(v, 20, 5)

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.grpc_addr", ":9090")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.trusted_proxies", []string{})

	// auth.jwt_secret deliberately has no default.
	_ = v.BindEnv("auth.jwt_secret")
	v.SetDefault("auth.access_ttl", auth.DefaultAccessTTL.String())
	v.SetDefault("auth.refresh_ttl", auth.DefaultRefreshTTL.String())
	v.SetDefault("auth.reset_window", auth.DefaultResetWindow.String())
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.enable", true)
	setRule := func(route string, limit int, window string) {
		v.SetDefault("rate_limit.rules."+route+".limit", limit)
		v.SetDefault("rate_limit.rules."+route+".window", window)
	}
	setRule(auth.RouteLogin, 10, "1m")
	setRule(auth.RouteRegister, 5, "1m")
	setRule(auth.RouteRefresh, 30, "1m")
	setRule(auth.RouteResetRequest, 5, "15m")
	setRule(auth.RouteReset, 10, "15m")

	v.SetDefault("outbox.workers", 2)
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.wait_time", "1s")
	v.SetDefault("outbox.in_progress_ttl", "1m")

	v.SetDefault("kafka.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka.topic", kafkarepo.MailTopic)

	var cfg Config
	if err := config.Unmarshal(v, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Auth.JWTSecret == "":
		return config.ErrConfig("auth.jwt_secret is required")
	case len(c.Auth.JWTSecret) < tokens.MinSecretLen:
		return config.ErrConfig(fmt.Sprintf("auth.jwt_secret must be at least %d bytes", tokens.MinSecretLen))
	case c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 || c.Auth.ResetWindow <= 0:
		return config.ErrConfig("auth ttls must be positive")
	}
	if err := config.RequireDBURL(c.DB.URL); err != nil {
		return err
	}
	for route, rule := range c.RateLimit.Rules {
		if rule.Limit > 0 && rule.Window < time.Millisecond {
			return config.ErrConfig(fmt.Sprintf("rate_limit.rules.%s.window must be at least 1ms", route))
		}
	}
	if _, err := c.Server.ProxyPrefixes(); err != nil {
		return config.ErrConfig(err.Error())
	}
	return nil
}
