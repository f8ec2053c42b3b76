package main

import (
	"net"

	config "github.com/NordCoder/Homeroom/internal/config/auth-api"
	"github.com/NordCoder/Homeroom/internal/obs"
	"github.com/NordCoder/Homeroom/internal/services/auth-api/auth"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// buildGRPCServer exposes health and reflection. Every other method registered later
// goes through the bearer interceptor.
func buildGRPCServer(cfg *config.Config, logger *zap.Logger, app *services) (*grpc.Server, net.Listener, error) {
	grpcMetrics := grpcprometheus.NewServerMetrics()
	prometheus.MustRegister(grpcMetrics)

	opts := obs.GRPCServerOpts(
		grpcMetrics.UnaryServerInterceptor(),
		auth.UnaryAuthInterceptor(app.gw, auth.DefaultPublicMethods),
	)
	opts = append(opts, grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()))

	grpcServer := grpc.NewServer(opts...)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)

	grpcMetrics.InitializeMetrics(grpcServer)

	ln, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return nil, nil, err
	}
	return grpcServer, ln, nil
}

func serveGRPC(s *grpc.Server, ln net.Listener, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("grpc listening", zap.String("addr", cfg.Server.GRPCAddr))
	return s.Serve(ln)
}
