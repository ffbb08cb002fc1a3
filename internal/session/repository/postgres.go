package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"sessionguard/internal/session/domain"
)

var sessionColumns = []string{
	"id", "user_id", "origin_address", "client_descriptor", "started_at",
	"ended_at", "duration_minutes", "active", "last_heartbeat_at",
}

// PostgresRepository persists sessions in the sessions table.
type PostgresRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(db)}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.sb.Select(sessionColumns...).From("sessions").Where(sq.Eq{"id": id}).QueryRowContext(ctx)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Create inserts the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.sb.Insert("sessions").Columns(sessionColumns...).Values(
		s.ID, s.UserID, s.OriginAddress, s.ClientDescriptor, s.StartedAt,
		timeToNullTime(s.EndedAt), s.DurationMinutes, s.Active, s.LastHeartbeatAt,
	).ExecContext(ctx)
	return err
}

// Touch updates heartbeat time and raises duration on an open session.
func (r *PostgresRepository) Touch(ctx context.Context, id string, at time.Time, minutes int) (bool, error) {
	res, err := r.sb.Update("sessions").
		Set("last_heartbeat_at", sq.Expr("GREATEST(last_heartbeat_at, ?)", at)).
		Set("duration_minutes", sq.Expr("GREATEST(duration_minutes, ?)", minutes)).
		Where(sq.Eq{"id": id, "active": true}).
		ExecContext(ctx)
	return affected(res, err)
}

// Close freezes an open session. Closing an already closed session changes nothing.
func (r *PostgresRepository) Close(ctx context.Context, id string, endedAt time.Time, minutes int) (bool, error) {
	res, err := r.sb.Update("sessions").
		Set("active", false).
		Set("ended_at", endedAt).
		Set("duration_minutes", sq.Expr("GREATEST(duration_minutes, ?)", minutes)).
		Where(sq.Eq{"id": id, "active": true}).
		ExecContext(ctx)
	return affected(res, err)
}

// ListByUser returns the user's sessions, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	return r.list(ctx, r.sb.Select(sessionColumns...).From("sessions").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("started_at DESC", "id"))
}

// ListActive returns open sessions newest first. An empty userID lists every user.
func (r *PostgresRepository) ListActive(ctx context.Context, userID string) ([]*domain.Session, error) {
	q := r.sb.Select(sessionColumns...).From("sessions").Where(sq.Eq{"active": true})
	if userID != "" {
		q = q.Where(sq.Eq{"user_id": userID})
	}
	return r.list(ctx, q.OrderBy("started_at DESC", "id"))
}

// ListStale returns open sessions with no heartbeat since cutoff.
func (r *PostgresRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Session, error) {
	q := r.sb.Select(sessionColumns...).From("sessions").
		Where(sq.Eq{"active": true}).
		Where(sq.Lt{"last_heartbeat_at": cutoff}).
		OrderBy("last_heartbeat_at", "id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.list(ctx, q)
}

// CountDistinctAddresses counts distinct non-empty origin addresses over the user's lifetime.
func (r *PostgresRepository) CountDistinctAddresses(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.sb.Select("COUNT(DISTINCT origin_address)").From("sessions").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.NotEq{"origin_address": ""}).
		QueryRowContext(ctx).Scan(&n)
	return n, err
}

func (r *PostgresRepository) list(ctx context.Context, q sq.SelectBuilder) ([]*domain.Session, error) {
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ScanSession reads one row selected with the session column list. Exported for the stats repository.
func ScanSession(row sq.RowScanner) (*domain.Session, error) {
	return scanSession(row)
}

// Columns returns the session column list in scan order.
func Columns() []string {
	return append([]string(nil), sessionColumns...)
}

func scanSession(row sq.RowScanner) (*domain.Session, error) {
	var (
		s       domain.Session
		endedAt sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.OriginAddress, &s.ClientDescriptor, &s.StartedAt,
		&endedAt, &s.DurationMinutes, &s.Active, &s.LastHeartbeatAt); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return &s, nil
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
