package token_sweeper_config

import (
	"time"

	"github.com/NordCoder/Homeroom/internal/config"
	pg "github.com/NordCoder/Homeroom/internal/repository/postgres"
)

type Sweep struct {
	Tick             time.Duration `mapstructure:"tick"`
	Retention        time.Duration `mapstructure:"retention"`
	ResetWindow      time.Duration `mapstructure:"reset_window"`
	UndeliveredAfter time.Duration `mapstructure:"undelivered_after"`
	BatchLimit       int           `mapstructure:"batch_limit"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`
}

type Config struct {
	App   config.App  `mapstructure:"app"`
	DB    pg.Config   `mapstructure:"db"`
	Sweep Sweep       `mapstructure:"sweep"`
	OTEL  config.OTEL `mapstructure:"otel"`
	Log   config.Log  `mapstructure:"log"`
}
