package guardv1

import "time"

// Session is a tracked client session.
type Session struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	OriginAddress    string     `json:"origin_address,omitempty"`
	ClientDescriptor string     `json:"client_descriptor,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	DurationMinutes  int        `json:"duration_minutes"`
	Active           bool       `json:"active"`
	LastHeartbeatAt  time.Time  `json:"last_heartbeat_at"`
	Online           bool       `json:"online"`
}

// Block is a security block on a user. State is active, expired or lifted.
type Block struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Reason        string     `json:"reason"`
	BlockedUntil  time.Time  `json:"blocked_until"`
	AddressCount  int        `json:"address_count"`
	SystemImposed bool       `json:"system_imposed"`
	State         string     `json:"state"`
	CreatedAt     time.Time  `json:"created_at"`
	LiftedAt      *time.Time `json:"lifted_at,omitempty"`
	LiftedBy      string     `json:"lifted_by,omitempty"`
}

// Policy is one version of the security policy.
type Policy struct {
	ID                   string    `json:"id"`
	MaxAddresses         int       `json:"max_addresses"`
	BlockDurationMinutes int       `json:"block_duration_minutes"`
	Active               bool      `json:"active"`
	CreatedBy            string    `json:"created_by,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// UserSnapshot is a per-user security rollup.
type UserSnapshot struct {
	UserID            string     `json:"user_id"`
	DisplayName       string     `json:"display_name,omitempty"`
	PlanTier          string     `json:"plan_tier,omitempty"`
	TotalSessions     int        `json:"total_sessions"`
	DistinctAddresses int        `json:"distinct_addresses"`
	TotalMinutes      int        `json:"total_minutes"`
	LastSessionStart  *time.Time `json:"last_session_start,omitempty"`
	Online            bool       `json:"online"`
	Blocked           bool       `json:"blocked"`
	Degraded          bool       `json:"degraded,omitempty"`
}

// AuditLog is one recorded operator command.
type AuditLog struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	IP         string    `json:"ip"`
	Metadata   string    `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChangeEvent notifies that a session, block or policy was created or updated.
type ChangeEvent struct {
	Kind   string    `json:"kind"`
	Op     string    `json:"op"`
	ID     string    `json:"id"`
	UserID string    `json:"user_id,omitempty"`
	At     time.Time `json:"at"`
}

// OpenSessionRequest starts a session. OriginAddress defaults to the caller's forwarded or peer address.
type OpenSessionRequest struct {
	UserID           string `json:"user_id"`
	OriginAddress    string `json:"origin_address,omitempty"`
	ClientDescriptor string `json:"client_descriptor,omitempty"`
}

type OpenSessionResponse struct {
	SessionID string `json:"session_id"`
}

type HeartbeatRequest struct {
	SessionID string `json:"session_id"`
}

type HeartbeatResponse struct {
	DurationMinutes int `json:"duration_minutes"`
}

type CloseSessionRequest struct {
	SessionID string `json:"session_id"`
}

type CloseSessionResponse struct {
	DurationMinutes int `json:"duration_minutes"`
}

type GetSessionRequest struct {
	SessionID string `json:"session_id"`
}

type GetSessionResponse struct {
	Session *Session `json:"session"`
}

type ListRecentSessionsRequest struct {
	// WindowSeconds defaults to the configured live-monitoring window.
	WindowSeconds int64 `json:"window_seconds,omitempty"`
}

type ListRecentSessionsResponse struct {
	Sessions []*Session `json:"sessions"`
	Since    time.Time  `json:"since"`
	Degraded bool       `json:"degraded,omitempty"`
}

type ListActiveSessionsRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type ListActiveSessionsResponse struct {
	Sessions []*Session `json:"sessions"`
}

type ListUserSessionsRequest struct {
	UserID string `json:"user_id"`
}

type ListUserSessionsResponse struct {
	Sessions []*Session `json:"sessions"`
}

type GetUserSnapshotRequest struct {
	UserID string `json:"user_id"`
}

type GetUserSnapshotResponse struct {
	Snapshot *UserSnapshot `json:"snapshot"`
}

type ListUserSnapshotsRequest struct{}

type ListUserSnapshotsResponse struct {
	Users    []*UserSnapshot `json:"users"`
	Degraded bool            `json:"degraded,omitempty"`
}

type GetDashboardRequest struct{}

type GetDashboardResponse struct {
	Users        []*UserSnapshot `json:"users"`
	OnlineUsers  int             `json:"online_users"`
	BlockedUsers int             `json:"blocked_users"`
	Degraded     bool            `json:"degraded,omitempty"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// GetPeriodTimeRequest asks for a user's minutes in the current today, week, month or year period.
type GetPeriodTimeRequest struct {
	UserID string `json:"user_id"`
	Period string `json:"period"`
}

type GetPeriodTimeResponse struct {
	Period   string    `json:"period"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Minutes  int       `json:"minutes"`
	Degraded bool      `json:"degraded,omitempty"`
}

type ListActiveBlocksRequest struct{}

type ListActiveBlocksResponse struct {
	Blocks []*Block `json:"blocks"`
}

type ListUserBlocksRequest struct {
	UserID string `json:"user_id"`
}

type ListUserBlocksResponse struct {
	Blocks []*Block `json:"blocks"`
}

// CreateBlockRequest blocks a user manually. Exactly one of DurationMinutes and BlockedUntil is set.
type CreateBlockRequest struct {
	UserID          string     `json:"user_id"`
	Reason          string     `json:"reason,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	BlockedUntil    *time.Time `json:"blocked_until,omitempty"`
}

type CreateBlockResponse struct {
	Block *Block `json:"block"`
}

type UnblockRequest struct {
	BlockID string `json:"block_id"`
}

type UnblockResponse struct {
	Block *Block `json:"block"`
}

type GetPolicyRequest struct{}

type GetPolicyResponse struct {
	// Policy is nil when none has been configured.
	Policy *Policy `json:"policy"`
}

type UpdatePolicyRequest struct {
	MaxAddresses         int `json:"max_addresses"`
	BlockDurationMinutes int `json:"block_duration_minutes"`
}

type UpdatePolicyResponse struct {
	Policy *Policy `json:"policy"`
}

type ListPolicyHistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListPolicyHistoryResponse struct {
	Policies []*Policy `json:"policies"`
}

type EvaluateUserRequest struct {
	UserID string `json:"user_id"`
}

// EvaluateUserResponse is the detector's decision; Action is none or block.
type EvaluateUserResponse struct {
	Action       string     `json:"action"`
	Reason       string     `json:"reason,omitempty"`
	AddressCount int        `json:"address_count"`
	BlockID      string     `json:"block_id,omitempty"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}

type ListAuditLogsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListAuditLogsResponse struct {
	Entries []*AuditLog `json:"entries"`
}

type WatchChangesRequest struct {
	// Kinds filters events (session, block, policy); empty means all.
	Kinds []string `json:"kinds,omitempty"`
}
