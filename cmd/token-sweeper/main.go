package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Homeroom/internal/config/token-sweeper"
	"github.com/NordCoder/Homeroom/internal/obs"
	pg "github.com/NordCoder/Homeroom/internal/repository/postgres"
	sweeper "github.com/NordCoder/Homeroom/internal/services/token-sweeper"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	def := os.Getenv("HOMEROOM_CONFIG")
	if def == "" {
		def = "config/token-sweeper.yaml"
	}
	path := flag.String("config", def, "path to token-sweeper yaml config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting token-sweeper",
		zap.Duration("tick", cfg.Sweep.Tick),
		zap.Duration("retention", cfg.Sweep.Retention),
		zap.Duration("reset_window", cfg.Sweep.ResetWindow),
		zap.Duration("undelivered_after", cfg.Sweep.UndeliveredAfter),
	)

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig(cfg.App))
	if err != nil {
		l.Warn("otel init", zap.Error(err))
		otelCloser = &obs.OTel{}
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.New(rootCtx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	prometheus.MustRegister(db.Collector())

	ms := obs.BootstrapMetricsServer(cfg.Sweep.MetricsAddr, db.Ping, l)

	uc := sweeper.NewUC(
		pg.NewRefreshTokenRepo(db),
		pg.NewPrincipalRepo(db),
		pg.NewOutboxRepo(db),
		sweeper.Policy{
			Retention:        cfg.Sweep.Retention,
			ResetWindow:      cfg.Sweep.ResetWindow,
			UndeliveredAfter: cfg.Sweep.UndeliveredAfter,
			BatchLimit:       cfg.Sweep.BatchLimit,
		},
	)
	runner := sweeper.New(l, uc, cfg.Sweep.Tick)

	if err := runner.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		l.Error("sweeper stopped", zap.Error(err))
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
