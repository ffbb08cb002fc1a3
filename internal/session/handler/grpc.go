package handler

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	guardv1 "sessionguard/api/guard/v1"
	"sessionguard/internal/logging"
	"sessionguard/internal/platform/rbac"
	"sessionguard/internal/security"
	"sessionguard/internal/server/interceptors"
	"sessionguard/internal/session/domain"
	"sessionguard/internal/session/tracker"
)

// Server implements SessionService for the services that report login sessions.
type Server struct {
	guardv1.UnimplementedSessionServiceServer
	tracker *tracker.Tracker
}

// NewServer returns a new Session gRPC server. If t is nil, all RPCs return Unimplemented.
func NewServer(t *tracker.Tracker) *Server {
	return &Server{tracker: t}
}

// OpenSession records a new session. When the caller omits the origin address, the request's
// forwarded or peer address is used.
func (s *Server) OpenSession(ctx context.Context, req *guardv1.OpenSessionRequest) (*guardv1.OpenSessionResponse, error) {
	if s.tracker == nil {
		return nil, status.Error(codes.Unimplemented, "method OpenSession not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleService); err != nil {
		return nil, err
	}
	origin := strings.TrimSpace(req.OriginAddress)
	if origin == "" {
		origin = interceptors.OriginAddress(ctx)
	}
	id, err := s.tracker.OpenSession(ctx, req.UserID, origin, req.ClientDescriptor)
	if err != nil {
		return nil, trackerError(ctx, err, "failed to open session")
	}
	return &guardv1.OpenSessionResponse{SessionID: id}, nil
}

// Heartbeat refreshes the session's duration.
func (s *Server) Heartbeat(ctx context.Context, req *guardv1.HeartbeatRequest) (*guardv1.HeartbeatResponse, error) {
	if s.tracker == nil {
		return nil, status.Error(codes.Unimplemented, "method Heartbeat not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleService); err != nil {
		return nil, err
	}
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id required")
	}
	minutes, err := s.tracker.Heartbeat(ctx, req.SessionID)
	if err != nil {
		return nil, trackerError(ctx, err, "failed to record heartbeat")
	}
	return &guardv1.HeartbeatResponse{DurationMinutes: minutes}, nil
}

// CloseSession ends the session. Closing an already closed session succeeds.
func (s *Server) CloseSession(ctx context.Context, req *guardv1.CloseSessionRequest) (*guardv1.CloseSessionResponse, error) {
	if s.tracker == nil {
		return nil, status.Error(codes.Unimplemented, "method CloseSession not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleService); err != nil {
		return nil, err
	}
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id required")
	}
	minutes, err := s.tracker.CloseSession(ctx, req.SessionID)
	if err != nil {
		return nil, trackerError(ctx, err, "failed to close session")
	}
	return &guardv1.CloseSessionResponse{DurationMinutes: minutes}, nil
}

// GetSession returns one session.
func (s *Server) GetSession(ctx context.Context, req *guardv1.GetSessionRequest) (*guardv1.GetSessionResponse, error) {
	if s.tracker == nil {
		return nil, status.Error(codes.Unimplemented, "method GetSession not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleService); err != nil {
		return nil, err
	}
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id required")
	}
	ses, err := s.tracker.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, trackerError(ctx, err, "failed to get session")
	}
	return &guardv1.GetSessionResponse{Session: SessionMessage(ses, s.tracker.IsOnline(ses))}, nil
}

// SessionMessage converts a domain session to its API message.
func SessionMessage(s *domain.Session, online bool) *guardv1.Session {
	if s == nil {
		return nil
	}
	return &guardv1.Session{
		ID:               s.ID,
		UserID:           s.UserID,
		OriginAddress:    s.OriginAddress,
		ClientDescriptor: s.ClientDescriptor,
		StartedAt:        s.StartedAt,
		EndedAt:          s.EndedAt,
		DurationMinutes:  s.DurationMinutes,
		Active:           s.Active,
		LastHeartbeatAt:  s.LastHeartbeatAt,
		Online:           online,
	}
}

func trackerError(ctx context.Context, err error, msg string) error {
	switch {
	case errors.Is(err, tracker.ErrUserRequired):
		return status.Error(codes.InvalidArgument, "user_id required")
	case errors.Is(err, tracker.ErrSessionNotFound):
		return status.Error(codes.NotFound, "session not found")
	}
	logging.Ctx(ctx).Error().Err(err).Msg("session: " + msg)
	return status.Error(codes.Internal, msg)
}
