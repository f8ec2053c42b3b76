package token_sweeper_config

import (
	"github.com/NordCoder/Homeroom/internal/config"
	"github.com/NordCoder/Homeroom/internal/services/auth-api/auth"
)

func Load(path string) (*Config, error) {
	v, err := config.NewViper(path)
	if err != nil {
		return nil, err
	}
	config.SetCommonDefaults(v, "token-sweeper")
	config.SetDBDefaults(v, 4, 1)

	v.SetDefault("sweep.tick", "10m")
	v.SetDefault("sweep.retention", "168h")
	v.SetDefault("sweep.reset_window", auth.DefaultResetWindow.String())
	v.SetDefault("sweep.undelivered_after", "72h")
	v.SetDefault("sweep.batch_limit", 1000)
	v.SetDefault("sweep.metrics_addr", ":8085")

	var cfg Config
	if err := config.Unmarshal(v, &cfg); err != nil {
		return nil, err
	}
	if err := config.RequireDBURL(cfg.DB.URL); err != nil {
		return nil, err
	}
	if cfg.Sweep.Tick <= 0 || cfg.Sweep.ResetWindow <= 0 || cfg.Sweep.Retention < 0 || cfg.Sweep.UndeliveredAfter <= 0 {
		return nil, config.ErrConfig("sweep durations must be positive")
	}
	return &cfg, nil
}
