package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName - имя сервиса в протоколе grpc.health.v1.
const ServiceName = "baphomet.images.v1"

type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	cfg    *cfg.GRPCConfig
	logger logger.Logger
}

func NewGRPCServer(cfg *cfg.GRPCConfig, logger logger.Logger) *GRPCServer {
	s := &GRPCServer{
		health: health.NewServer(),
		cfg:    cfg,
		logger: logger,
	}
	s.server = grpc.NewServer(grpc.ChainUnaryInterceptor(s.logUnary))
	healthpb.RegisterHealthServer(s.server, s.health)
	s.SetServing(false)
	return s
}

// SetServing переключает статус и для всего сервера, и для ServiceName.
func (s *GRPCServer) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *GRPCServer) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	lis, err := net.Listen(s.cfg.NetworkMode, addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return s.Serve(lis)
}

func (s *GRPCServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

func (s *GRPCServer) Stop(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Infof("gRPC server stopped gracefully")
		return nil
	case <-ctx.Done():
		s.server.Stop()
		s.logger.Warnf("gRPC server forced to stop after timeout")
		return ctx.Err()
	}
}

func (s *GRPCServer) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warnf("grpc %s failed in %s: %v", info.FullMethod, time.Since(start), err)
	} else {
		s.logger.Debugf("grpc %s done in %s", info.FullMethod, time.Since(start))
	}
	return resp, err
}
