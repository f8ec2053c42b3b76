package main

import (
	"context"

	config "github.com/NordCoder/Homeroom/internal/config/auth-api"
	pg "github.com/NordCoder/Homeroom/internal/repository/postgres"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func initDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pg.DB, error) {
	db, err := pg.New(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	prometheus.MustRegister(db.Collector())
	logger.Info("db connected", zap.Int32("max_conns", cfg.DB.MaxConns))
	return db, nil
}
