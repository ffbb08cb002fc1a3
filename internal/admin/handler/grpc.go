package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	guardv1 "sessionguard/api/guard/v1"
	"sessionguard/internal/audit"
	auditdomain "sessionguard/internal/audit/domain"
	"sessionguard/internal/block"
	blockdomain "sessionguard/internal/block/domain"
	"sessionguard/internal/detection"
	"sessionguard/internal/events"
	"sessionguard/internal/logging"
	"sessionguard/internal/platform/rbac"
	"sessionguard/internal/policy"
	policydomain "sessionguard/internal/policy/domain"
	"sessionguard/internal/security"
	sessiondomain "sessionguard/internal/session/domain"
	sessionhandler "sessionguard/internal/session/handler"
	"sessionguard/internal/session/tracker"
	"sessionguard/internal/stats"
	statsdomain "sessionguard/internal/stats/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100

	manualBlockReason = "manual block"
)

// AuditTrail records and lists operator commands.
type AuditTrail interface {
	audit.AuditLogger
	List(ctx context.Context, limit int) ([]*auditdomain.AuditLog, error)
}

// ChangeFeed provides the change-event stream for WatchChanges.
type ChangeFeed interface {
	Subscribe() (<-chan events.ChangeEvent, func())
}

// Deps holds the engine components behind AdminService. A nil component makes the RPCs that need it
// return Unimplemented.
type Deps struct {
	Tracker   *tracker.Tracker
	Stats     *stats.Aggregator
	Dashboard *stats.Refresher
	Blocks    *block.Registry
	Policies  *policy.Store
	Detector  *detection.Detector
	Audit     AuditTrail
	Changes   ChangeFeed
	// RecentWindow is the live-monitoring window used when a request does not set one.
	RecentWindow time.Duration
}

// Server implements AdminService for security operators.
type Server struct {
	guardv1.UnimplementedAdminServiceServer
	deps Deps
}

// NewServer returns a new Admin gRPC server.
func NewServer(deps Deps) *Server {
	if deps.RecentWindow <= 0 {
		deps.RecentWindow = 24 * time.Hour
	}
	return &Server{deps: deps}
}

// ListRecentSessions returns sessions started within the window, newest first.
func (s *Server) ListRecentSessions(ctx context.Context, req *guardv1.ListRecentSessionsRequest) (*guardv1.ListRecentSessionsResponse, error) {
	if s.deps.Stats == nil || s.deps.Tracker == nil {
		return nil, status.Error(codes.Unimplemented, "method ListRecentSessions not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	if req.WindowSeconds < 0 {
		return nil, status.Error(codes.InvalidArgument, "window_seconds must not be negative")
	}
	window := s.deps.RecentWindow
	if req.WindowSeconds > 0 {
		window = time.Duration(req.WindowSeconds) * time.Second
	}
	recent := s.deps.Stats.RecentSessions(ctx, window)
	return &guardv1.ListRecentSessionsResponse{
		Sessions: s.sessionMessages(recent.Sessions),
		Since:    recent.Since,
		Degraded: recent.Degraded,
	}, nil
}

// ListActiveSessions returns currently open sessions, optionally for one user.
func (s *Server) ListActiveSessions(ctx context.Context, req *guardv1.ListActiveSessionsRequest) (*guardv1.ListActiveSessionsResponse, error) {
	if s.deps.Tracker == nil {
		return nil, status.Error(codes.Unimplemented, "method ListActiveSessions not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	list, err := s.deps.Tracker.ListActive(ctx, req.UserID)
	if err != nil {
		return nil, internal(ctx, err, "failed to list active sessions")
	}
	return &guardv1.ListActiveSessionsResponse{Sessions: s.sessionMessages(list)}, nil
}

// ListUserSessions returns one user's session history, newest first.
func (s *Server) ListUserSessions(ctx context.Context, req *guardv1.ListUserSessionsRequest) (*guardv1.ListUserSessionsResponse, error) {
	if s.deps.Tracker == nil {
		return nil, status.Error(codes.Unimplemented, "method ListUserSessions not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id required")
	}
	list, err := s.deps.Tracker.ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, internal(ctx, err, "failed to list user sessions")
	}
	return &guardv1.ListUserSessionsResponse{Sessions: s.sessionMessages(list)}, nil
}

// GetUserSnapshot returns one user's security rollup.
func (s *Server) GetUserSnapshot(ctx context.Context, req *guardv1.GetUserSnapshotRequest) (*guardv1.GetUserSnapshotResponse, error) {
	if s.deps.Stats == nil {
		return nil, status.Error(codes.Unimplemented, "method GetUserSnapshot not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id required")
	}
	snap := s.deps.Stats.UserSnapshot(ctx, req.UserID)
	return &guardv1.GetUserSnapshotResponse{Snapshot: snapshotMessage(snap)}, nil
}

// ListUserSnapshots returns every user's rollup, computed now.
func (s *Server) ListUserSnapshots(ctx context.Context, req *guardv1.ListUserSnapshotsRequest) (*guardv1.ListUserSnapshotsResponse, error) {
	if s.deps.Stats == nil {
		return nil, status.Error(codes.Unimplemented, "method ListUserSnapshots not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	ov := s.deps.Stats.AllUsersSnapshot(ctx)
	return &guardv1.ListUserSnapshotsResponse{Users: snapshotMessages(ov.Users), Degraded: ov.Degraded}, nil
}

// GetDashboard returns the latest periodically refreshed overview.
func (s *Server) GetDashboard(ctx context.Context, req *guardv1.GetDashboardRequest) (*guardv1.GetDashboardResponse, error) {
	if s.deps.Dashboard == nil && s.deps.Stats == nil {
		return nil, status.Error(codes.Unimplemented, "method GetDashboard not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	var ov statsdomain.Overview
	if s.deps.Dashboard != nil {
		ov = s.deps.Dashboard.Latest(ctx)
	} else {
		ov = s.deps.Stats.AllUsersSnapshot(ctx)
	}
	return &guardv1.GetDashboardResponse{
		Users:        snapshotMessages(ov.Users),
		OnlineUsers:  ov.OnlineUsers,
		BlockedUsers: ov.BlockedUsers,
		Degraded:     ov.Degraded,
		GeneratedAt:  ov.GeneratedAt,
	}, nil
}

// GetPeriodTime returns the user's minutes in the current calendar period.
func (s *Server) GetPeriodTime(ctx context.Context, req *guardv1.GetPeriodTimeRequest) (*guardv1.GetPeriodTimeResponse, error) {
	if s.deps.Stats == nil {
		return nil, status.Error(codes.Unimplemented, "method GetPeriodTime not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id required")
	}
	period, err := statsdomain.ParsePeriod(req.Period)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "period must be today, week, month or year")
	}
	total, err := s.deps.Stats.PeriodTime(ctx, req.UserID, period)
	if err != nil {
		return nil, internal(ctx, err, "failed to compute period time")
	}
	return &guardv1.GetPeriodTimeResponse{
		Period:   string(total.Period),
		From:     total.From,
		To:       total.To,
		Minutes:  total.Minutes,
		Degraded: total.Degraded,
	}, nil
}

// ListActiveBlocks returns blocks in effect now.
func (s *Server) ListActiveBlocks(ctx context.Context, req *guardv1.ListActiveBlocksRequest) (*guardv1.ListActiveBlocksResponse, error) {
	if s.deps.Blocks == nil {
		return nil, status.Error(codes.Unimplemented, "method ListActiveBlocks not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	list, err := s.deps.Blocks.ListActive(ctx)
	if err != nil {
		return nil, internal(ctx, err, "failed to list active blocks")
	}
	return &guardv1.ListActiveBlocksResponse{Blocks: s.blockMessages(list)}, nil
}

// ListUserBlocks returns a user's block history including lifted and expired blocks.
func (s *Server) ListUserBlocks(ctx context.Context, req *guardv1.ListUserBlocksRequest) (*guardv1.ListUserBlocksResponse, error) {
	if s.deps.Blocks == nil {
		return nil, status.Error(codes.Unimplemented, "method ListUserBlocks not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id required")
	}
	list, err := s.deps.Blocks.ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, internal(ctx, err, "failed to list user blocks")
	}
	return &guardv1.ListUserBlocksResponse{Blocks: s.blockMessages(list)}, nil
}

// CreateBlock blocks a user manually until the given time or for the given duration.
func (s *Server) CreateBlock(ctx context.Context, req *guardv1.CreateBlockRequest) (*guardv1.CreateBlockResponse, error) {
	if s.deps.Blocks == nil {
		return nil, status.Error(codes.Unimplemented, "method CreateBlock not implemented")
	}
	actor, err := rbac.RequireRole(ctx, security.RoleOperator)
	if err != nil {
		return nil, err
	}
	var until time.Time
	switch {
	case req.BlockedUntil != nil && req.DurationMinutes != 0:
		return nil, status.Error(codes.InvalidArgument, "set only one of duration_minutes and blocked_until")
	case req.BlockedUntil != nil:
		until = *req.BlockedUntil
	case req.DurationMinutes > 0:
		until = s.deps.Blocks.Now().Add(time.Duration(req.DurationMinutes) * time.Minute)
	default:
		return nil, status.Error(codes.InvalidArgument, "duration_minutes or blocked_until required")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = manualBlockReason
	}
	b, err := s.deps.Blocks.Create(ctx, block.Spec{UserID: req.UserID, Reason: reason, BlockedUntil: until})
	if err != nil {
		if errors.Is(err, block.ErrInvalidBlock) {
			return nil, status.Error(codes.InvalidArgument, "user_id required and blocked_until must be in the future")
		}
		return nil, internal(ctx, err, "failed to create block")
	}
	s.logEvent(ctx, actor, audit.ActionCreateBlock, "block", b.ID, map[string]any{
		"user_id":       b.UserID,
		"blocked_until": b.BlockedUntil,
		"reason":        b.Reason,
	})
	return &guardv1.CreateBlockResponse{Block: s.blockMessage(b)}, nil
}

// Unblock lifts a block regardless of its expiry.
func (s *Server) Unblock(ctx context.Context, req *guardv1.UnblockRequest) (*guardv1.UnblockResponse, error) {
	if s.deps.Blocks == nil {
		return nil, status.Error(codes.Unimplemented, "method Unblock not implemented")
	}
	actor, err := rbac.RequireRole(ctx, security.RoleOperator)
	if err != nil {
		return nil, err
	}
	if req.BlockID == "" {
		return nil, status.Error(codes.InvalidArgument, "block_id required")
	}
	b, err := s.deps.Blocks.Unblock(ctx, req.BlockID, actor)
	if err != nil {
		if errors.Is(err, block.ErrBlockNotFound) {
			return nil, status.Error(codes.NotFound, "block not found")
		}
		return nil, internal(ctx, err, "failed to unblock")
	}
	s.logEvent(ctx, actor, audit.ActionUnblock, "block", b.ID, map[string]any{"user_id": b.UserID})
	return &guardv1.UnblockResponse{Block: s.blockMessage(b)}, nil
}

// GetPolicy returns the active security policy, or none.
func (s *Server) GetPolicy(ctx context.Context, req *guardv1.GetPolicyRequest) (*guardv1.GetPolicyResponse, error) {
	if s.deps.Policies == nil {
		return nil, status.Error(codes.Unimplemented, "method GetPolicy not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	p, err := s.deps.Policies.Active(ctx)
	if err != nil {
		return nil, internal(ctx, err, "failed to get policy")
	}
	return &guardv1.GetPolicyResponse{Policy: policyMessage(p)}, nil
}

// UpdatePolicy replaces the active security policy.
func (s *Server) UpdatePolicy(ctx context.Context, req *guardv1.UpdatePolicyRequest) (*guardv1.UpdatePolicyResponse, error) {
	if s.deps.Policies == nil {
		return nil, status.Error(codes.Unimplemented, "method UpdatePolicy not implemented")
	}
	actor, err := rbac.RequireRole(ctx, security.RoleOperator)
	if err != nil {
		return nil, err
	}
	p, err := s.deps.Policies.Update(ctx, req.MaxAddresses, req.BlockDurationMinutes, actor)
	if err != nil {
		if errors.Is(err, policy.ErrInvalidPolicy) {
			return nil, status.Error(codes.InvalidArgument, "max_addresses and block_duration_minutes must be at least 1")
		}
		return nil, internal(ctx, err, "failed to update policy")
	}
	s.logEvent(ctx, actor, audit.ActionUpdatePolicy, "security_policy", p.ID, map[string]any{
		"max_addresses":          p.MaxAddresses,
		"block_duration_minutes": p.BlockDurationMinutes,
	})
	return &guardv1.UpdatePolicyResponse{Policy: policyMessage(p)}, nil
}

// ListPolicyHistory returns policy versions newest first.
func (s *Server) ListPolicyHistory(ctx context.Context, req *guardv1.ListPolicyHistoryRequest) (*guardv1.ListPolicyHistoryResponse, error) {
	if s.deps.Policies == nil {
		return nil, status.Error(codes.Unimplemented, "method ListPolicyHistory not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	list, err := s.deps.Policies.History(ctx, pageSize(req.Limit))
	if err != nil {
		return nil, internal(ctx, err, "failed to list policy history")
	}
	out := make([]*guardv1.Policy, 0, len(list))
	for _, p := range list {
		out = append(out, policyMessage(p))
	}
	return &guardv1.ListPolicyHistoryResponse{Policies: out}, nil
}

// EvaluateUser runs the abuse detector for a user now.
func (s *Server) EvaluateUser(ctx context.Context, req *guardv1.EvaluateUserRequest) (*guardv1.EvaluateUserResponse, error) {
	if s.deps.Detector == nil {
		return nil, status.Error(codes.Unimplemented, "method EvaluateUser not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id required")
	}
	d, err := s.deps.Detector.Evaluate(ctx, req.UserID)
	if err != nil {
		return nil, internal(ctx, err, "failed to evaluate user")
	}
	resp := &guardv1.EvaluateUserResponse{
		Action:       string(d.Action),
		Reason:       d.Reason,
		AddressCount: d.AddressCount,
		BlockID:      d.BlockID,
	}
	if d.Action == detection.ActionBlock {
		until := d.BlockedUntil
		resp.BlockedUntil = &until
	}
	return resp, nil
}

// ListAuditLogs returns recent operator commands newest first.
func (s *Server) ListAuditLogs(ctx context.Context, req *guardv1.ListAuditLogsRequest) (*guardv1.ListAuditLogsResponse, error) {
	if s.deps.Audit == nil {
		return nil, status.Error(codes.Unimplemented, "method ListAuditLogs not implemented")
	}
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return nil, err
	}
	list, err := s.deps.Audit.List(ctx, pageSize(req.Limit))
	if err != nil {
		return nil, internal(ctx, err, "failed to list audit logs")
	}
	out := make([]*guardv1.AuditLog, 0, len(list))
	for _, e := range list {
		out = append(out, &guardv1.AuditLog{
			ID:         e.ID,
			Actor:      e.Actor,
			Action:     e.Action,
			Resource:   e.Resource,
			ResourceID: e.ResourceID,
			IP:         e.IP,
			Metadata:   e.Metadata,
			CreatedAt:  e.CreatedAt,
		})
	}
	return &guardv1.ListAuditLogsResponse{Entries: out}, nil
}

// WatchChanges streams change events until the client goes away. Events are not replayed;
// a subscriber that falls behind misses events rather than slowing writers.
func (s *Server) WatchChanges(req *guardv1.WatchChangesRequest, stream guardv1.AdminService_WatchChangesServer) error {
	if s.deps.Changes == nil {
		return status.Error(codes.Unimplemented, "method WatchChanges not implemented")
	}
	ctx := stream.Context()
	if _, err := rbac.RequireRole(ctx, security.RoleOperator); err != nil {
		return err
	}
	kinds := make(map[events.Kind]bool, len(req.Kinds))
	for _, k := range req.Kinds {
		switch kind := events.Kind(strings.ToLower(strings.TrimSpace(k))); kind {
		case events.KindSession, events.KindBlock, events.KindPolicy:
			kinds[kind] = true
		default:
			return status.Errorf(codes.InvalidArgument, "unknown kind %q", k)
		}
	}
	feed, unsubscribe := s.deps.Changes.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-feed:
			if !ok {
				return status.Error(codes.Unavailable, "change feed closed")
			}
			if len(kinds) > 0 && !kinds[ev.Kind] {
				continue
			}
			if err := stream.Send(&guardv1.ChangeEvent{
				Kind:   string(ev.Kind),
				Op:     string(ev.Op),
				ID:     ev.ID,
				UserID: ev.UserID,
				At:     ev.At,
			}); err != nil {
				return err
			}
		}
	}
}

func (s *Server) logEvent(ctx context.Context, actor, action, resource, resourceID string, metadata map[string]any) {
	if s.deps.Audit != nil {
		s.deps.Audit.LogEvent(ctx, actor, action, resource, resourceID, metadata)
	}
}

func (s *Server) sessionMessages(list []*sessiondomain.Session) []*guardv1.Session {
	out := make([]*guardv1.Session, 0, len(list))
	for _, ses := range list {
		online := s.deps.Tracker != nil && s.deps.Tracker.IsOnline(ses)
		out = append(out, sessionhandler.SessionMessage(ses, online))
	}
	return out
}

func (s *Server) blockMessages(list []*blockdomain.Block) []*guardv1.Block {
	out := make([]*guardv1.Block, 0, len(list))
	for _, b := range list {
		out = append(out, s.blockMessage(b))
	}
	return out
}

func (s *Server) blockMessage(b *blockdomain.Block) *guardv1.Block {
	return &guardv1.Block{
		ID:            b.ID,
		UserID:        b.UserID,
		Reason:        b.Reason,
		BlockedUntil:  b.BlockedUntil,
		AddressCount:  b.AddressCount,
		SystemImposed: b.SystemImposed,
		State:         b.State(s.deps.Blocks.Now()),
		CreatedAt:     b.CreatedAt,
		LiftedAt:      b.LiftedAt,
		LiftedBy:      b.LiftedBy,
	}
}

func snapshotMessages(list []statsdomain.Snapshot) []*guardv1.UserSnapshot {
	out := make([]*guardv1.UserSnapshot, 0, len(list))
	for _, snap := range list {
		out = append(out, snapshotMessage(snap))
	}
	return out
}

func snapshotMessage(snap statsdomain.Snapshot) *guardv1.UserSnapshot {
	return &guardv1.UserSnapshot{
		UserID:            snap.UserID,
		DisplayName:       snap.DisplayName,
		PlanTier:          snap.PlanTier,
		TotalSessions:     snap.TotalSessions,
		DistinctAddresses: snap.DistinctAddresses,
		TotalMinutes:      snap.TotalMinutes,
		LastSessionStart:  snap.LastSessionStart,
		Online:            snap.Online,
		Blocked:           snap.Blocked,
		Degraded:          snap.Degraded,
	}
}

func policyMessage(p *policydomain.Policy) *guardv1.Policy {
	if p == nil {
		return nil
	}
	return &guardv1.Policy{
		ID:                   p.ID,
		MaxAddresses:         p.MaxAddresses,
		BlockDurationMinutes: p.BlockDurationMinutes,
		Active:               p.Active,
		CreatedBy:            p.CreatedBy,
		CreatedAt:            p.CreatedAt,
	}
}

func pageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	return min(limit, maxPageSize)
}

func internal(ctx context.Context, err error, msg string) error {
	logging.Ctx(ctx).Error().Err(err).Msg("admin: " + msg)
	return status.Error(codes.Internal, msg)
}
