// Package store persists Minerva entities in a single DuckDB database file.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb/v2"
)

// Duck is the DuckDB-backed implementation of Store.
type Duck struct {
	db     *sql.DB
	dbPath string

	// Serializes outbox claims; DuckDB reports concurrent write-write
	// conflicts as errors instead of blocking.
	claimMu sync.Mutex
}

// Options tunes the underlying DuckDB instance.
type Options struct {
	Threads     int
	MemoryLimit string
}

// Open opens (or creates) the DuckDB database at dbPath and migrates the schema.
func Open(dbPath string, opts Options) (*Duck, error) {
	if opts.Threads <= 0 {
		opts.Threads = 2
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = "256MB"
	}

	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	// The file is a single-writer database; serialize access through one conn.
	db.SetMaxOpenConns(1)

	d := &Duck{db: db, dbPath: dbPath}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// migrate creates tables and sequences if they do not exist.
func (d *Duck) migrate() error {
	stmts := []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_words START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_reminders START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_occurrences START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_services START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_service_status START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_notifications START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_telegram_chats START 1`,
		`CREATE TABLE IF NOT EXISTS words (
			id         BIGINT PRIMARY KEY DEFAULT nextval('seq_words'),
			word       VARCHAR NOT NULL UNIQUE,
			definition VARCHAR NOT NULL,
			extra_json VARCHAR,
			active     BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id               BIGINT PRIMARY KEY DEFAULT nextval('seq_reminders'),
			label            VARCHAR NOT NULL,
			description      VARCHAR,
			schedule_kind    VARCHAR NOT NULL,
			time_of_day      VARCHAR NOT NULL,
			days_of_week     VARCHAR,
			one_off_at       TIMESTAMP,
			grace_before_min INTEGER NOT NULL DEFAULT 0,
			grace_after_min  INTEGER NOT NULL DEFAULT 60,
			channels         VARCHAR NOT NULL DEFAULT 'telegram,esp32',
			enabled          BOOLEAN NOT NULL DEFAULT true,
			created_at       TIMESTAMP NOT NULL,
			updated_at       TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reminder_occurrences (
			id              BIGINT PRIMARY KEY DEFAULT nextval('seq_occurrences'),
			reminder_id     BIGINT NOT NULL,
			due_at          TIMESTAMP NOT NULL,
			window_start_at TIMESTAMP NOT NULL,
			window_end_at   TIMESTAMP NOT NULL,
			state           VARCHAR NOT NULL DEFAULT 'PENDING',
			done_at         TIMESTAMP,
			skipped_at      TIMESTAMP,
			alerted_at      TIMESTAMP,
			note            VARCHAR,
			created_at      TIMESTAMP NOT NULL,
			updated_at      TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS services (
			id                 BIGINT PRIMARY KEY DEFAULT nextval('seq_services'),
			name               VARCHAR NOT NULL,
			slug               VARCHAR NOT NULL UNIQUE,
			kind               VARCHAR NOT NULL,
			target             VARCHAR NOT NULL,
			check_interval_sec INTEGER NOT NULL DEFAULT 60,
			timeout_sec        INTEGER NOT NULL DEFAULT 5,
			enabled            BOOLEAN NOT NULL DEFAULT true,
			alert_on_down      BOOLEAN NOT NULL DEFAULT true,
			alert_on_recovery  BOOLEAN NOT NULL DEFAULT true,
			created_at         TIMESTAMP NOT NULL,
			updated_at         TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS service_status (
			id                   BIGINT PRIMARY KEY DEFAULT nextval('seq_service_status'),
			service_id           BIGINT NOT NULL UNIQUE,
			is_up                BOOLEAN NOT NULL DEFAULT false,
			latency_ms           DOUBLE,
			last_checked_at      TIMESTAMP,
			consecutive_failures INTEGER NOT NULL DEFAULT 0,
			last_change_at       TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notification_events (
			id            BIGINT PRIMARY KEY DEFAULT nextval('seq_notifications'),
			channel       VARCHAR NOT NULL,
			payload_json  VARCHAR NOT NULL,
			status        VARCHAR NOT NULL DEFAULT 'PENDING',
			attempt_count INTEGER NOT NULL DEFAULT 0,
			last_error    VARCHAR,
			locked_at     TIMESTAMP,
			locked_by     VARCHAR,
			sent_at       TIMESTAMP,
			acked_at      TIMESTAMP,
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS telegram_chats (
			id            BIGINT PRIMARY KEY DEFAULT nextval('seq_telegram_chats'),
			chat_id       BIGINT NOT NULL UNIQUE,
			chat_type     VARCHAR NOT NULL DEFAULT 'private',
			username      VARCHAR,
			title         VARCHAR,
			enabled       BOOLEAN NOT NULL DEFAULT true,
			first_seen_at TIMESTAMP NOT NULL,
			last_seen_at  TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}

	return nil
}

// Close closes the database.
func (d *Duck) Close() error {
	return d.db.Close()
}

// Path returns the database file location.
func (d *Duck) Path() string {
	return d.dbPath
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// nullableTime converts a scanned sql.NullTime to a *time.Time.
func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// nullableString converts a scanned sql.NullString to a *string.
func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// nullableFloat converts a scanned sql.NullFloat64 to a *float64.
func nullableFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
