package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	guardv1 "sessionguard/api/guard/v1"
	adminhandler "sessionguard/internal/admin/handler"
	healthhandler "sessionguard/internal/health/handler"
	"sessionguard/internal/security"
	"sessionguard/internal/server/interceptors"
	sessionhandler "sessionguard/internal/session/handler"
	"sessionguard/internal/session/tracker"
	"sessionguard/internal/telemetry"
)

// HealthCheckMethod is served without a bearer token and is not logged per call.
const HealthCheckMethod = "/grpc.health.v1.Health/Check"

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// Tracker backs SessionService. If nil, session RPCs return Unimplemented.
	Tracker *tracker.Tracker
	// Admin backs AdminService. Nil components make the RPCs that need them return Unimplemented.
	Admin adminhandler.Deps
	// HealthPinger is used by the health service for readiness (e.g. *sql.DB). If nil, Check skips the store ping.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by the health service for readiness (e.g. OPA evaluator). If nil, Check skips the rule check.
	HealthPolicyChecker healthhandler.PolicyChecker
}

// Options configures the interceptor chain built by NewGRPCServer.
type Options struct {
	// Tokens validates bearer tokens. Nil disables authentication and runs every call as the dev identity.
	Tokens *security.TokenProvider
	// Metrics records RPC durations. May be nil.
	Metrics *telemetry.Metrics
}

// NewGRPCServer returns a server with tracing, request logging and authentication installed, in that order.
func NewGRPCServer(opts Options, extra ...grpc.ServerOption) *grpc.Server {
	public := map[string]bool{HealthCheckMethod: true}
	quiet := map[string]bool{HealthCheckMethod: true}
	serverOpts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.TelemetryUnary(opts.Metrics, quiet),
			interceptors.AuthUnary(opts.Tokens, public),
		),
		grpc.ChainStreamInterceptor(
			interceptors.TelemetryStream(opts.Metrics, quiet),
			interceptors.AuthStream(opts.Tokens, public),
		),
	}
	return grpc.NewServer(append(serverOpts, extra...)...)
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - sessionguard.v1.SessionService → internal/session/handler
//   - sessionguard.v1.AdminService   → internal/admin/handler
//   - grpc.health.v1.Health          → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	guardv1.RegisterSessionServiceServer(s, sessionhandler.NewServer(deps.Tracker))
	guardv1.RegisterAdminServiceServer(s, adminhandler.NewServer(deps.Admin))
	healthpb.RegisterHealthServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker))
}
