package interceptors

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"sessionguard/internal/logging"
	"sessionguard/internal/telemetry"
)

const requestIDHeader = "x-request-id"

// TelemetryUnary returns a unary server interceptor that attaches a request id to the context,
// records the RPC duration and logs one line per call. skipMethods is the set of full method
// names not logged (e.g. the health check); their duration is still recorded.
func TelemetryUnary(metrics *telemetry.Metrics, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx = withRequestID(ctx)
		start := time.Now()
		resp, err := handler(ctx, req)
		observe(ctx, metrics, info.FullMethod, start, err, skipMethods[info.FullMethod])
		return resp, err
	}
}

// TelemetryStream is the streaming counterpart of TelemetryUnary. The duration covers the whole stream.
func TelemetryStream(metrics *telemetry.Metrics, skipMethods map[string]bool) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := withRequestID(ss.Context())
		start := time.Now()
		err := handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
		observe(ctx, metrics, info.FullMethod, start, err, skipMethods[info.FullMethod])
		return err
	}
}

func withRequestID(ctx context.Context) context.Context {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(requestIDHeader); len(vals) > 0 {
			if id := strings.TrimSpace(vals[0]); id != "" {
				return logging.ContextWithRequestID(ctx, id)
			}
		}
	}
	return logging.ContextWithNewRequestID(ctx)
}

func observe(ctx context.Context, metrics *telemetry.Metrics, method string, start time.Time, err error, quiet bool) {
	elapsed := time.Since(start)
	code := status.Code(err)
	metrics.RPC(ctx, method, code.String(), float64(elapsed.Microseconds())/1000)
	if quiet {
		return
	}
	var ev *zerolog.Event
	switch code {
	case codes.OK, codes.Canceled:
		ev = logging.Ctx(ctx).Debug()
	case codes.Internal, codes.Unknown, codes.DataLoss:
		ev = logging.Ctx(ctx).Error().Err(err)
	default:
		ev = logging.Ctx(ctx).Info().Err(err)
	}
	subject, _ := GetSubject(ctx)
	ev.Str("method", method).
		Str("code", code.String()).
		Dur("duration", elapsed).
		Str("subject", subject).
		Str("client_ip", ClientIP(ctx)).
		Msg("grpc: request")
}
