package main

import (
	config "github.com/NordCoder/Homeroom/internal/config/auth-api"
	"github.com/NordCoder/Homeroom/internal/obs"

	"go.uber.org/zap"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App))
}
