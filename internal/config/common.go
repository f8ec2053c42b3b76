// Package config holds the pieces every Homeroom service config shares.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/NordCoder/Homeroom/internal/obs"

	"github.com/spf13/viper"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc OTEL) AsOTELConfig(app App) *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
		Env:         app.Env,
		Version:     app.Version,
	}
}

type Log struct {
	Level      string `mapstructure:"level"`
	Pretty     bool   `mapstructure:"pretty"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func (lc Log) AsLoggerConfig(app App) obs.LogConfig {
	return obs.LogConfig{
		Level:      lc.Level,
		Pretty:     lc.Pretty,
		App:        "homeroom/" + app.Name,
		Env:        app.Env,
		Ver:        app.Version,
		File:       lc.File,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAgeDays: lc.MaxAgeDays,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

const errDBURL = ErrConfig("db.url is required")

func RequireDBURL(url string) error {
	if url == "" {
		return errDBURL
	}
	return nil
}

// NewViper reads the optional YAML file at path. A missing file is not an error.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

func SetCommonDefaults(v *viper.Viper, service string) {
	v.SetDefault("app.name", service)
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "dev")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", service)
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")
}

// SetDBDefaults leaves db.url unset; it carries credentials and must come from
// the file or DB_URL.
func SetDBDefaults(v *viper.Viper, maxConns, minConns int) {
	_ = v.BindEnv("db.url")
	v.SetDefault("db.max_conns", maxConns)
	v.SetDefault("db.min_conns", minConns)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("db.max_conn_idle_time", "10m")
	v.SetDefault("db.health_check_period", "30s")
	v.SetDefault("db.query_timeout", "2s")
}

// Unmarshal applies env overrides (db.url -> DB_URL) and decodes into dst.
func Unmarshal(v *viper.Viper, dst any) error {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.Unmarshal(dst); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
