package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Homeroom/internal/config/auth-api"

	"go.uber.org/zap"
)

func configPath() string {
	def := os.Getenv("HOMEROOM_CONFIG")
	if def == "" {
		def = "config/auth-api.yaml"
	}
	path := flag.String("config", def, "path to auth-api yaml config")
	flag.Parse()
	return *path
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting auth-api", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	db, err := initDB(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	app, err := wire(cfg, logger, db)
	if err != nil {
		logger.Fatal("wire services", zap.Error(err))
	}
	defer app.close()

	grpcServer, grpcLn, err := buildGRPCServer(cfg, logger, app)
	if err != nil {
		logger.Fatal("build grpc", zap.Error(err))
	}

	grpcErrCh := make(chan error, 1)
	go func() { grpcErrCh <- serveGRPC(grpcServer, grpcLn, cfg, logger) }()

	httpSrv := buildHTTPServer(cfg, logger, db, app)
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, cfg, logger) }()

	outboxCtx, stopOutbox := context.WithCancel(rootCtx)
	outboxDone := make(chan struct{})
	go func() {
		defer close(outboxDone)
		app.outbox.Start(outboxCtx)
	}()

	var runErr error
	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case runErr = <-grpcErrCh:
		if runErr != nil {
			logger.Error("grpc serve", zap.Error(runErr))
		}
	case runErr = <-httpErrCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	grpcServer.GracefulStop()

	stopOutbox()
	select {
	case <-outboxDone:
	case <-time.After(cfg.Server.GracefulTimeout):
		logger.Warn("outbox runner did not stop in time")
	}
	logger.Info("bye")
}
