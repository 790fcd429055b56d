package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/southerncrossbullion/bullion-backend/pkg/migrate"
)

func TestInitMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no init schema migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE price_locks",
		"CREATE UNIQUE INDEX ux_price_locks_session_product_active",
		"WHERE status = 'active'",
		"CREATE UNIQUE INDEX ux_outbox_events_event_aggregate",
		"CREATE INDEX idx_quote_snapshots_symbol_captured",
		"CREATE UNIQUE INDEX ux_halt_states_symbol",
		"DROP TABLE IF EXISTS price_locks",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirAcceptsCheckedInMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
