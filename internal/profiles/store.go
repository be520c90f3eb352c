// Package profiles persists named settings documents in SQLite.
package profiles

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Simplici0/pagen/internal/settings"
)

// DefaultName is the profile seeded on first start.
const DefaultName = "default"

// ErrNotFound is returned when no profile has the requested name.
var ErrNotFound = errors.New("profile not found")

// nameRule keeps names usable as URL path segments and file names.
const nameRule = "required,max=64,excludesall=/\\?#%[] "

// Summary is a profile listing row.
type Summary struct {
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store reads and writes profiles.
type Store struct {
	db       *sql.DB
	validate *validator.Validate
}

func New(db *sql.DB) *Store {
	return &Store{db: db, validate: validator.New()}
}

// ValidateName reports whether name can be used as a profile name.
func (s *Store) ValidateName(name string) error {
	if err := s.validate.Var(name, nameRule); err != nil {
		return fmt.Errorf("invalid profile name %q: must be 1-64 characters without spaces, slashes or URL delimiters", name)
	}
	return nil
}

// Save inserts or replaces the named profile. It reports whether the row was new.
func (s *Store) Save(ctx context.Context, name string, doc *settings.Document) (created bool, err error) {
	if err := s.ValidateName(name); err != nil {
		return false, err
	}
	var buf bytes.Buffer
	if err := settings.Encode(&buf, doc, settings.FormatJSON); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin profile transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists bool
	if err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE name = ? LIMIT 1)`, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check profile existence: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (name, document)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			document = excluded.document,
			updated_at = CURRENT_TIMESTAMP
	`, name, buf.String()); err != nil {
		return false, fmt.Errorf("upsert profile %q: %w", name, err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit profile transaction: %w", err)
	}
	return !exists, nil
}

// Get loads the named profile.
func (s *Store) Get(ctx context.Context, name string) (*settings.Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM profiles WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query profile %q: %w", name, err)
	}

	doc, err := settings.Decode([]byte(raw), settings.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("decode profile %q: %w", name, err)
	}
	return doc, nil
}

// List returns all profiles ordered by name.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, created_at, updated_at
		FROM profiles
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			p                Summary
			created, updated string
		)
		if err := rows.Scan(&p.Name, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.CreatedAt = parseTimestamp(created)
		p.UpdatedAt = parseTimestamp(updated)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

// parseTimestamp accepts both the CURRENT_TIMESTAMP text form and the
// RFC 3339 form database/sql produces when the driver hands back a time.Time.
func parseTimestamp(v string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Delete removes the named profile.
func (s *Store) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete profile %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile %q: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
