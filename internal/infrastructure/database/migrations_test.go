package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"sql/20260101_000000_first.up.sql":    {Data: []byte("CREATE TABLE first (id TEXT PRIMARY KEY);")},
		"sql/20260101_000000_first.down.sql":  {Data: []byte("DROP TABLE first;")},
		"sql/20260102_000000_second.up.sql":   {Data: []byte("CREATE TABLE second (id TEXT PRIMARY KEY);")},
		"sql/20260102_000000_second.down.sql": {Data: []byte("DROP TABLE second;")},
		"sql/README.md":                       {Data: []byte("ignored")},
	}
}

func useTestMigrations(t *testing.T) {
	t.Helper()
	restore := UseMigrations(testMigrations(), "sql")
	t.Cleanup(restore)
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("checking table %s: %v", name, err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "first") || !tableExists(t, db, "second") {
		t.Fatal("Migrate() did not create both tables")
	}

	// Idempotent.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("MigrationStatus() = %d applied, %d pending, want 2, 0", len(applied), len(pending))
	}
}

func TestMigrateDown(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(t, db, "second") {
		t.Error("MigrateDown() left the latest table in place")
	}
	if !tableExists(t, db, "first") {
		t.Error("MigrateDown() removed more than the latest migration")
	}

	_, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "second" {
		t.Errorf("pending = %+v, want [second]", pending)
	}
}

func TestMigrate_NoSource(t *testing.T) {
	restore := UseMigrations(nil, ".")
	t.Cleanup(restore)

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() without migrations error = %v", err)
	}
}

func TestMigrate_MissingUp(t *testing.T) {
	restore := UseMigrations(fstest.MapFS{
		"20260101_000000_orphan.down.sql": {Data: []byte("DROP TABLE orphan;")},
	}, ".")
	t.Cleanup(restore)

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err == nil {
		t.Error("Migrate() expected error for migration without up SQL")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260101_120000_entity_records.up.sql", "20260101_120000", "entity_records", true, true},
		{"20260101_120000_entity_records.down.sql", "20260101_120000", "entity_records", false, true},
		{"20260101_120000.up.sql", "20260101_120000", "20260101_120000", true, true},
		{"20260101.up.sql", "", "", false, false},
		{"20260101_120000_x.sql", "", "", false, false},
		{"README.md", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = %q, %q, %v, %v, want %q, %q, %v, %v",
					tt.filename, version, name, up, ok,
					tt.wantVersion, tt.wantName, tt.wantUp, tt.wantOK)
			}
		})
	}
}
