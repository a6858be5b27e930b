// Package archive persists each run's surviving records to PostgreSQL for
// historical queries. The archive is optional: it is only opened when a
// DSN is configured, and a failing archive never stops feed emission.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/opentransit/stoerfeed/internal/models"
)

// Store writes run archives to PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to the archive database.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema creates the archive tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS disruption_items (
			run_id      TEXT        NOT NULL,
			run_at      TIMESTAMPTZ NOT NULL,
			identity    TEXT        NOT NULL,
			guid        TEXT        NOT NULL DEFAULT '',
			title       TEXT        NOT NULL DEFAULT '',
			description TEXT        NOT NULL DEFAULT '',
			link        TEXT        NOT NULL DEFAULT '',
			source      TEXT        NOT NULL DEFAULT '',
			category    TEXT        NOT NULL DEFAULT '',
			provider    TEXT        NOT NULL DEFAULT '',
			location    TEXT        NOT NULL DEFAULT '',
			pub_date    TIMESTAMPTZ,
			starts_at   TIMESTAMPTZ,
			ends_at     TIMESTAMPTZ,
			PRIMARY KEY (run_id, identity)
		);
		CREATE INDEX IF NOT EXISTS disruption_items_identity_idx
			ON disruption_items (identity, run_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

// StoreRun inserts the surviving batch of one run in a single transaction.
func (s *Store) StoreRun(ctx context.Context, runID string, runAt time.Time, items []models.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO disruption_items (
			run_id, run_at, identity, guid, title, description, link,
			source, category, provider, location, pub_date, starts_at, ends_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id, identity) DO NOTHING
	`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare archive insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		identity := item.Identity
		if identity == "" {
			identity = item.ContentHash()
		}
		_, err := stmt.ExecContext(ctx,
			runID,
			runAt,
			identity,
			item.GUID,
			item.Title,
			item.Description,
			item.Link,
			item.Source,
			item.Category,
			item.Provider,
			item.Location,
			nullTime(item.PubDate),
			nullTime(item.StartsAt),
			nullTime(item.EndsAt),
		)
		if err != nil {
			return fmt.Errorf("insert archive item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive transaction: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
