package migrate

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"

	"sessionguard/internal/db"
)

func TestRun_EmptyDSN(t *testing.T) {
	for _, dsn := range []string{"", "   "} {
		if err := Run(dsn, "up"); !errors.Is(err, ErrNoDSN) {
			t.Errorf("Run(%q) error = %v, want ErrNoDSN", dsn, err)
		}
	}
	if _, _, err := Version(""); !errors.Is(err, ErrNoDSN) {
		t.Errorf("Version error = %v, want ErrNoDSN", err)
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "invalid", "UP", "Down", "both"} {
		t.Run(direction, func(t *testing.T) {
			err := Run("postgres://localhost/test", direction)
			if err == nil || !strings.Contains(err.Error(), "direction") {
				t.Errorf("Run direction %q error = %v, want a direction error", direction, err)
			}
		})
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	for _, dsn := range []string{"invalid-dsn", "://localhost/test", "postgres://localhost with spaces/test"} {
		err := Run(dsn, "up")
		if err == nil {
			t.Errorf("Run with invalid DSN %q should return error", dsn)
		}
		if errors.Is(err, ErrNoChange) {
			t.Errorf("Run(%q) returned ErrNoChange; it should be swallowed", dsn)
		}
	}
}

func TestMigrationFS_PairedFiles(t *testing.T) {
	entries, err := fs.ReadDir(db.MigrationFS, "migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
	if len(ups) == 0 {
		t.Fatal("no migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("migration %s has no down file", v)
		}
	}
	for v := range downs {
		if !ups[v] {
			t.Errorf("migration %s has no up file", v)
		}
	}
}

func TestMigrationFS_CreatesRepositoryTables(t *testing.T) {
	b, err := fs.ReadFile(db.MigrationFS, "migrations/000001_sessionguard.up.sql")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	sql := string(b)
	for _, table := range []string{"sessions", "security_policies", "security_blocks", "audit_logs"} {
		if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("up migration does not create %s", table)
		}
	}
	if !strings.Contains(sql, "ON security_policies (active) WHERE active") {
		t.Error("up migration is missing the single-active-policy index")
	}
}

func TestRun_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if err := Run(dsn, "up"); err != nil {
		t.Fatalf("Run up: %v", err)
	}
	if err := Run(dsn, "up"); err != nil {
		t.Errorf("second Run up should be a no-op: %v", err)
	}
	v, dirty, err := Version(dsn)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != 1 || dirty {
		t.Errorf("Version = %d dirty=%v, want 1 clean", v, dirty)
	}
}
