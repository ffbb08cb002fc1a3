package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	sessiondomain "sessionguard/internal/session/domain"
	sessionrepo "sessionguard/internal/session/repository"
	"sessionguard/internal/stats/domain"
)

// PostgresRepository computes rollups with grouped queries over the sessions table.
type PostgresRepository struct {
	sb sq.StatementBuilderType
}

// NewPostgresRepository returns a stats repository over db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(db)}
}

func (r *PostgresRepository) rollupQuery(onlineSince time.Time) sq.SelectBuilder {
	return r.sb.Select(
		"user_id",
		"COUNT(*)",
		"COUNT(DISTINCT NULLIF(origin_address, ''))",
		"COALESCE(SUM(duration_minutes), 0)",
		"MAX(started_at)",
	).
		Column(sq.Expr("BOOL_OR(active AND last_heartbeat_at >= ?)", onlineSince)).
		From("sessions").
		GroupBy("user_id")
}

// UserRollup aggregates one user's sessions.
func (r *PostgresRepository) UserRollup(ctx context.Context, userID string, onlineSince time.Time) (*domain.Rollup, error) {
	row := r.rollupQuery(onlineSince).Where(sq.Eq{"user_id": userID}).QueryRowContext(ctx)
	ru, err := scanRollup(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ru, nil
}

// Rollups aggregates all users in one grouped query.
func (r *PostgresRepository) Rollups(ctx context.Context, onlineSince time.Time) ([]*domain.Rollup, error) {
	rows, err := r.rollupQuery(onlineSince).OrderBy("user_id").QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Rollup
	for rows.Next() {
		ru, err := scanRollup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ru)
	}
	return out, rows.Err()
}

// MinutesStartedBetween sums durations of sessions started in [from, to).
func (r *PostgresRepository) MinutesStartedBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var n int
	err := r.sb.Select("COALESCE(SUM(duration_minutes), 0)").From("sessions").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"started_at": from}).
		Where(sq.Lt{"started_at": to}).
		QueryRowContext(ctx).Scan(&n)
	return n, err
}

// SessionsStartedSince lists sessions started at or after since, newest first.
func (r *PostgresRepository) SessionsStartedSince(ctx context.Context, since time.Time) ([]*sessiondomain.Session, error) {
	rows, err := r.sb.Select(sessionrepo.Columns()...).From("sessions").
		Where(sq.GtOrEq{"started_at": since}).
		OrderBy("started_at DESC", "id").
		QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*sessiondomain.Session
	for rows.Next() {
		s, err := sessionrepo.ScanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanRollup(row sq.RowScanner) (*domain.Rollup, error) {
	var (
		ru     domain.Rollup
		last   sql.NullTime
		online sql.NullBool
	)
	if err := row.Scan(&ru.UserID, &ru.Sessions, &ru.DistinctAddresses, &ru.TotalMinutes, &last, &online); err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time
		ru.LastSessionStart = &t
	}
	ru.Online = online.Valid && online.Bool
	return &ru, nil
}
