package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"

	"sessionguard/internal/identity/domain"
)

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// PostgresDirectory reads profiles from a table or view the identity service exposes
// with columns user_id, display_name and plan_tier.
type PostgresDirectory struct {
	table string
	sb    sq.StatementBuilderType
}

// NewPostgresDirectory returns a Directory over table. The name is checked because it is spliced into SQL.
func NewPostgresDirectory(db *sql.DB, table string) (*PostgresDirectory, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("identity: invalid profiles table %q", table)
	}
	return &PostgresDirectory{table: table, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(db)}, nil
}

// Lookup returns profiles for the given ids in one query.
func (d *PostgresDirectory) Lookup(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := d.sb.Select("user_id", "COALESCE(display_name, '')", "COALESCE(plan_tier, '')").
		From(d.table).
		Where(sq.Eq{"user_id": userIDs}).
		QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.PlanTier); err != nil {
			return nil, err
		}
		out[p.UserID] = p
	}
	return out, rows.Err()
}
