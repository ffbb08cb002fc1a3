package handler

import (
	"context"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"sessionguard/internal/logging"
)

const checkTimeout = 2 * time.Second

// Pinger checks store connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the abuse rules still evaluate (e.g. the OPA evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server implements grpc.health.v1.Health for readiness and liveness.
type Server struct {
	healthpb.UnimplementedHealthServer
	pinger  Pinger
	checker PolicyChecker
}

// NewServer returns a new Health gRPC server. A nil pinger or checker skips that check.
func NewServer(pinger Pinger, checker PolicyChecker) *Server {
	return &Server{pinger: pinger, checker: checker}
}

// Check reports SERVING when the store answers a ping and the rule engine passes its self-check.
// Check failures are reported as NOT_SERVING, never as RPC errors.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if s.pinger != nil {
		if err := s.pinger.PingContext(ctx); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("health: store ping failed")
			return notServing(), nil
		}
	}
	if s.checker != nil {
		if err := s.checker.HealthCheck(ctx); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("health: rule engine check failed")
			return notServing(), nil
		}
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

func notServing() *healthpb.HealthCheckResponse {
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}
}
