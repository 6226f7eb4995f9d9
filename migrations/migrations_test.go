package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) == 0 {
		t.Fatalf("expected embedded migrations")
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %s", name)
		}
	}
	for base := range ups {
		if !downs[base] {
			t.Errorf("missing down migration for %s", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Errorf("missing up migration for %s", base)
		}
	}
}

func TestMigrationsCreateAgentTables(t *testing.T) {
	for name, table := range map[string]string{
		"000001_create_bookings.up.sql":     "CREATE TABLE IF NOT EXISTS bookings",
		"000002_create_audit_events.up.sql": "CREATE TABLE IF NOT EXISTS audit_events",
	} {
		raw, err := fs.ReadFile(FS, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(raw), table) {
			t.Errorf("%s does not create its table", name)
		}
	}
}
