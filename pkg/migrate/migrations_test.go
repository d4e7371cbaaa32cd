package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/bookloan-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCheckoutsMigrationEnforcesSingleActiveLoan(t *testing.T) {
	assertContains(t, readMigration(t, "create_checkouts"), []string{
		"CREATE TABLE IF NOT EXISTS checkouts",
		"returned_at timestamptz NULL",
		"FOREIGN KEY (book_id) REFERENCES books(id)",
		"FOREIGN KEY (user_id) REFERENCES users(id)",
		"CHECK (returned_at IS NULL OR returned_at >= checked_out_at)",
		"CREATE UNIQUE INDEX IF NOT EXISTS checkouts_one_active_per_book",
		"WHERE returned_at IS NULL",
		"DROP TABLE IF EXISTS checkouts",
	})
}

func TestUsersAndBooksMigrations(t *testing.T) {
	assertContains(t, readMigration(t, "create_users"), []string{
		"CREATE TABLE IF NOT EXISTS users",
		"CHECK (role IN ('admin', 'user'))",
		"DROP TABLE IF EXISTS users",
	})
	assertContains(t, readMigration(t, "create_books"), []string{
		"CREATE TABLE IF NOT EXISTS books",
		"isbn text NOT NULL",
		"FOREIGN KEY (owned_by) REFERENCES users(id)",
		"DROP TABLE IF EXISTS books",
	})
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations should validate: %v", err)
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected empty dir to fail")
	}

	if err := os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail")
	}

	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20250101000000_no_down.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil || !strings.Contains(err.Error(), "goose Down") {
		t.Fatalf("expected missing down section error, got %v", err)
	}
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"20250101000000_a_no_down.sql": "-- +goose Up\nSELECT 1;\n",
		"20250101000000_b_dup.sql":     "-- +goose Up\n-- +goose Down\n",
		"20250101000003_swapped.sql":   "-- +goose Down\n-- +goose Up\n",
		"notes.sql":                    "-- +goose Up\n-- +goose Down\n",
		"20250101000004_readme.txt":    "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	err := migrate.ValidateDir(dir)
	if err == nil {
		t.Fatal("expected validation to fail")
	}
	if got := len(multierr.Errors(err)); got != 4 {
		t.Fatalf("expected 4 problems, got %d: %v", got, err)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	path, err := migrate.CreateSQLMigration(dir, "Add Loan Notes!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20250304050607_add_loan_notes.sql" {
		t.Fatalf("unexpected migration path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add loan notes", now); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing migration to be kept, got %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected empty sanitized name to fail")
	}
}

func TestOpenRejectsBadDSNWithoutConnecting(t *testing.T) {
	ctx := context.Background()
	if _, err := migrate.Open(ctx, ""); err == nil {
		t.Fatal("expected empty dsn to fail")
	}
	if _, err := migrate.Open(ctx, "postgres://user@%zz/bookloan"); err == nil || !strings.Contains(err.Error(), "parse database dsn") {
		t.Fatalf("expected dsn parse error, got %v", err)
	}
}
