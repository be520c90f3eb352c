package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Simplici0/pagen/internal/db"
)

func TestUpIsRepeatable(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "migrate-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	applied, err := Up(ctx, database)
	if err != nil {
		t.Fatalf("first Up: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected 1 migration applied, got %d", applied)
	}

	applied, err = Up(ctx, database)
	if err != nil {
		t.Fatalf("second Up: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no pending migrations, got %d", applied)
	}

	var count int
	if err := database.QueryRow(`SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		t.Fatalf("query profiles table: %v", err)
	}
}
