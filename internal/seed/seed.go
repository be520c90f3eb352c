package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/pagen/internal/profiles"
	"github.com/Simplici0/pagen/internal/settings"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way. The built-in default
// profile is inserted when absent; an existing one is completed with any
// settings added since it was saved, and left alone otherwise.
func Run(ctx context.Context, db *sql.DB) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureDefaultProfile(ctx, tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureDefaultProfile(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	var raw string
	err := tx.QueryRowContext(ctx, `SELECT document FROM profiles WHERE name = ?`, profiles.DefaultName).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		data, err := encode(settings.Default())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (name, document)
			VALUES (?, ?)
		`, profiles.DefaultName, data); err != nil {
			return fmt.Errorf("insert default profile: %w", err)
		}
		stats.Inserts++
		return nil
	case err != nil:
		return fmt.Errorf("check default profile existence: %w", err)
	}

	doc, err := settings.Decode([]byte(raw), settings.FormatJSON)
	if err != nil {
		return fmt.Errorf("decode default profile: %w", err)
	}
	data, err := encode(settings.WithDefaults(doc))
	if err != nil {
		return err
	}
	if data == raw {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET
			document = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, data, profiles.DefaultName); err != nil {
		return fmt.Errorf("update default profile: %w", err)
	}
	stats.Updates++
	return nil
}

func encode(doc *settings.Document) (string, error) {
	var buf strings.Builder
	if err := settings.Encode(&buf, doc, settings.FormatJSON); err != nil {
		return "", fmt.Errorf("encode default profile: %w", err)
	}
	return buf.String(), nil
}
