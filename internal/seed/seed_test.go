package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Simplici0/pagen/internal/db"
	"github.com/Simplici0/pagen/internal/migrations"
	"github.com/Simplici0/pagen/internal/profiles"
	"github.com/Simplici0/pagen/internal/settings"
)

func openSeedDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "seed-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if _, err := migrations.Up(ctx, database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := openSeedDB(t)

	for i := 0; i < 10; i++ {
		stats, err := Run(ctx, database)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 1 {
				t.Fatalf("expected 1 insert in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 || stats.Updates != 0 {
			t.Fatalf("expected no changes in iteration %d, got %+v", i, stats)
		}
	}

	var count int
	if err := database.QueryRow(`SELECT COUNT(*) FROM profiles WHERE name = ?`, profiles.DefaultName).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	doc, err := profiles.New(database).Get(ctx, profiles.DefaultName)
	if err != nil {
		t.Fatalf("load default profile: %v", err)
	}
	if _, err := settings.Resolve(doc); err != nil {
		t.Fatalf("seeded profile does not resolve: %v", err)
	}
}

func TestRunCompletesOutdatedDefault(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := openSeedDB(t)

	partial := `{"object_settings": {"width": [40, "Object width in mm"]}, "start_gcode": "G28\n", "end_gcode": "M84\n"}`
	if _, err := database.Exec(`INSERT INTO profiles (name, document) VALUES (?, ?)`, profiles.DefaultName, partial); err != nil {
		t.Fatalf("insert partial profile: %v", err)
	}

	stats, err := Run(ctx, database)
	if err != nil {
		t.Fatalf("run seed: %v", err)
	}
	if stats.Inserts != 0 || stats.Updates != 1 {
		t.Fatalf("expected a single update, got %+v", stats)
	}

	doc, err := profiles.New(database).Get(ctx, profiles.DefaultName)
	if err != nil {
		t.Fatalf("load default profile: %v", err)
	}
	width, err := doc.Lookup("object_settings.width")
	if err != nil || width != 40.0 {
		t.Fatalf("expected saved width 40 to survive, got %v (%v)", width, err)
	}
	if _, err := doc.Lookup("filament_settings.density"); err != nil {
		t.Fatalf("expected density to be filled in: %v", err)
	}
	if doc.StartGCode != "G28\n" {
		t.Fatalf("start gcode was overwritten: %q", doc.StartGCode)
	}
}
