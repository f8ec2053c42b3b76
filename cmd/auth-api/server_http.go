package main

import (
	"net/http"

	config "github.com/NordCoder/Homeroom/internal/config/auth-api"
	pg "github.com/NordCoder/Homeroom/internal/repository/postgres"
	"github.com/NordCoder/Homeroom/internal/services/auth-api/auth"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, db *pg.DB, app *services) *http.Server {
	// Load already rejected malformed entries.
	proxies, _ := cfg.Server.ProxyPrefixes()
	api := auth.NewServer(app.sessions, app.resets, app.verify, app.gw, auth.Opts{
		Logger:         logger,
		Limiter:        app.limiter,
		RateLimits:     cfg.RateLimit.Rules,
		TrustedProxies: proxies,
		Ready:          db.Ping,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	})

	return &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      c.Handler(otelhttp.NewHandler(api.Handler(), "auth-api")),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
	return srv.ListenAndServe()
}
