package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"sessionguard/internal/audit/domain"
)

// PostgresRepository persists audit logs in the audit_logs table.
type PostgresRepository struct {
	sb sq.StatementBuilderType
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(db)}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.sb.Insert("audit_logs").
		Columns("id", "actor", "action", "resource", "resource_id", "ip", "metadata", "created_at").
		Values(a.ID, a.Actor, a.Action, a.Resource, a.ResourceID, a.IP, meta, a.CreatedAt).
		ExecContext(ctx)
	return err
}

// List returns audit logs newest first.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	q := r.sb.Select("id", "actor", "action", "resource", "resource_id", "ip", "COALESCE(metadata::text, '')", "created_at").
		From("audit_logs").
		OrderBy("created_at DESC", "id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		if err := rows.Scan(&a.ID, &a.Actor, &a.Action, &a.Resource, &a.ResourceID, &a.IP, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
