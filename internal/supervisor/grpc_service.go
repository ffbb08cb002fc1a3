package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/thejerf/suture/v4"
	"google.golang.org/grpc"

	"sessionguard/internal/logging"
)

// GRPCServer is the part of *grpc.Server the service drives.
type GRPCServer interface {
	Serve(lis net.Listener) error
	GracefulStop()
	Stop()
}

// GRPCService serves a gRPC server on addr and stops it gracefully when the tree shuts down.
// The listener is opened on every start so a restart can rebind.
type GRPCService struct {
	server          GRPCServer
	addr            string
	listen          func(network, addr string) (net.Listener, error)
	shutdownTimeout time.Duration
}

// NewGRPCService returns a service for server listening on addr.
func NewGRPCService(server GRPCServer, addr string, shutdownTimeout time.Duration) *GRPCService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &GRPCService{server: server, addr: addr, listen: net.Listen, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (s *GRPCService) Serve(ctx context.Context) error {
	lis, err := s.listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc: listen %s: %w", s.addr, err)
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
		errCh <- s.server.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return suture.ErrDoNotRestart
		}
		if err != nil {
			return fmt.Errorf("grpc: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		stopped := make(chan struct{})
		go func() {
			s.server.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(s.shutdownTimeout):
			logging.Warn().Dur("timeout", s.shutdownTimeout).Msg("gRPC graceful stop timed out, forcing")
			s.server.Stop()
		}
		<-errCh
		logging.Info().Msg("gRPC server stopped")
		return ctx.Err()
	}
}

// String names the service in supervisor logs.
func (s *GRPCService) String() string { return "grpc-server" }
