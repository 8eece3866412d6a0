package sqlitemigrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestApplyRunsMigrationsInOrder(t *testing.T) {
	migrations := fstest.MapFS{
		"0001_base.sql": {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"0002_more.sql": {Data: []byte("ALTER TABLE widgets ADD COLUMN label TEXT;")},
	}
	sqlDB := openTestDB(t)

	if err := Apply(context.Background(), sqlDB, migrations); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, err := sqlDB.Exec("INSERT INTO widgets (id, label) VALUES ('w1', 'first')"); err != nil {
		t.Fatalf("expected both migrations applied: %v", err)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	migrations := fstest.MapFS{
		"0001_base.sql": {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
	}
	sqlDB := openTestDB(t)

	if err := Apply(context.Background(), sqlDB, migrations); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := Apply(context.Background(), sqlDB, migrations); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one recorded migration, got %d", count)
	}
}

func TestApplySkipsBlankFiles(t *testing.T) {
	migrations := fstest.MapFS{
		"0001_blank.sql": {Data: []byte("   \n")},
	}
	sqlDB := openTestDB(t)

	if err := Apply(context.Background(), sqlDB, migrations); err != nil {
		t.Fatalf("apply: %v", err)
	}
}

func TestApplyRequiresDB(t *testing.T) {
	if err := Apply(context.Background(), nil, fstest.MapFS{}); err == nil {
		t.Fatal("expected error for nil db")
	}
}
