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

	config "github.com/NordCoder/Homeroom/internal/config/email-notifier"
	"github.com/NordCoder/Homeroom/internal/obs"
	"github.com/NordCoder/Homeroom/internal/repository/kafka"
	pg "github.com/NordCoder/Homeroom/internal/repository/postgres"
	notifier "github.com/NordCoder/Homeroom/internal/services/email-notifier"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func wiring(db *pg.DB, cfg *config.Config, cons *kafka.Consumer, l *zap.Logger) *notifier.Runner {
	h := &notifier.Handler{
		Log:   l,
		Store: pg.NewNotificationRepo(db),
		Out:   notifier.NewMailer(cfg.SMTP, l),
		Clock: systemClock{},
		Links: cfg.Links,
	}
	return notifier.NewRunner(l, cons, h)
}

func main() {
	def := os.Getenv("HOMEROOM_CONFIG")
	if def == "" {
		def = "config/email-notifier.yaml"
	}
	path := flag.String("config", def, "path to email-notifier yaml config")
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

	l.Info("starting email-notifier",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("topic", cfg.In.Topic),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.String("smtp_addr", cfg.SMTP.Addr),
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
	l.Info("db connected")

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, db.Ping, l)

	cons := kafka.BootstrapConsumer(rootCtx, cfg.In.AsConsumerConfig(), l)
	defer func() { _ = cons.Close() }()
	l.Info("kafka consumer initialized", zap.String("group_id", cfg.In.GroupID))

	runner := wiring(db, cfg, cons, l)
	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(rootCtx) }()

	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr := <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("runner error", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
