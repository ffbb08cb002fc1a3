package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"sessionguard/internal/block/domain"
)

var blockColumns = []string{
	"id", "user_id", "reason", "blocked_until", "address_count", "system_imposed",
	"active", "created_at", "lifted_at", "lifted_by",
}

// PostgresRepository persists blocks in the security_blocks table.
type PostgresRepository struct {
	sb sq.StatementBuilderType
}

// NewPostgresRepository returns a block repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(db)}
}

// GetByID returns the block for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Block, error) {
	row := r.sb.Select(blockColumns...).From("security_blocks").Where(sq.Eq{"id": id}).QueryRowContext(ctx)
	b, err := scanBlock(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// Create inserts the block. The block must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, b *domain.Block) error {
	var liftedAt sql.NullTime
	if b.LiftedAt != nil {
		liftedAt = sql.NullTime{Time: *b.LiftedAt, Valid: true}
	}
	_, err := r.sb.Insert("security_blocks").Columns(blockColumns...).Values(
		b.ID, b.UserID, b.Reason, b.BlockedUntil, b.AddressCount, b.SystemImposed,
		b.Active, b.CreatedAt, liftedAt, b.LiftedBy,
	).ExecContext(ctx)
	return err
}

// Deactivate lifts an active block.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string, at time.Time, by string) (bool, error) {
	res, err := r.sb.Update("security_blocks").
		Set("active", false).
		Set("lifted_at", at).
		Set("lifted_by", by).
		Where(sq.Eq{"id": id, "active": true}).
		ExecContext(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasEffective reports whether the user has an unexpired active block.
func (r *PostgresRepository) HasEffective(ctx context.Context, userID string, now time.Time) (bool, error) {
	var one int
	err := r.sb.Select("1").From("security_blocks").
		Where(sq.Eq{"user_id": userID, "active": true}).
		Where(sq.Gt{"blocked_until": now}).
		Limit(1).
		QueryRowContext(ctx).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListEffective returns unexpired active blocks, newest first.
func (r *PostgresRepository) ListEffective(ctx context.Context, now time.Time) ([]*domain.Block, error) {
	return r.list(ctx, r.sb.Select(blockColumns...).From("security_blocks").
		Where(sq.Eq{"active": true}).
		Where(sq.Gt{"blocked_until": now}).
		OrderBy("created_at DESC", "id"))
}

// ListByUser returns all blocks for the user, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Block, error) {
	return r.list(ctx, r.sb.Select(blockColumns...).From("security_blocks").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id"))
}

func (r *PostgresRepository) list(ctx context.Context, q sq.SelectBuilder) ([]*domain.Block, error) {
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBlock(row sq.RowScanner) (*domain.Block, error) {
	var (
		b        domain.Block
		liftedAt sql.NullTime
		liftedBy sql.NullString
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Reason, &b.BlockedUntil, &b.AddressCount, &b.SystemImposed,
		&b.Active, &b.CreatedAt, &liftedAt, &liftedBy); err != nil {
		return nil, err
	}
	if liftedAt.Valid {
		t := liftedAt.Time
		b.LiftedAt = &t
	}
	b.LiftedBy = liftedBy.String
	return &b, nil
}
