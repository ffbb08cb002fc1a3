package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"sessionguard/internal/policy/domain"
)

// policyLockKey serializes policy replacement across server replicas.
const policyLockKey = 7305001

var policyColumns = []string{"id", "max_addresses", "block_duration_minutes", "active", "created_by", "created_at"}

// PostgresRepository persists policy versions in the security_policies table.
type PostgresRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewPostgresRepository returns a policy repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// GetActive returns the active policy, or nil if none is active.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetActive(ctx context.Context) (*domain.Policy, error) {
	row := r.sb.RunWith(r.db).Select(policyColumns...).From("security_policies").
		Where(sq.Eq{"active": true}).
		QueryRowContext(ctx)
	p, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// Replace deactivates the current policy and inserts p in one transaction under an advisory lock.
// The partial unique index on active rows rejects a second active row if the lock is bypassed.
func (r *PostgresRepository) Replace(ctx context.Context, p *domain.Policy) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", policyLockKey); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	sb := r.sb.RunWith(tx)
	if _, err = sb.Update("security_policies").Set("active", false).Where(sq.Eq{"active": true}).ExecContext(ctx); err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}
	if _, err = sb.Insert("security_policies").Columns(policyColumns...).
		Values(p.ID, p.MaxAddresses, p.BlockDurationMinutes, true, p.CreatedBy, p.CreatedAt).
		ExecContext(ctx); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	p.Active = true
	return nil
}

// List returns policy versions newest first.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*domain.Policy, error) {
	q := r.sb.RunWith(r.db).Select(policyColumns...).From("security_policies").OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPolicy(row sq.RowScanner) (*domain.Policy, error) {
	var (
		p         domain.Policy
		createdBy sql.NullString
	)
	if err := row.Scan(&p.ID, &p.MaxAddresses, &p.BlockDurationMinutes, &p.Active, &createdBy, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.CreatedBy = createdBy.String
	return &p, nil
}
