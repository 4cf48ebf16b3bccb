// Package audit persists an append-only record per processed submission in
// a local SQLite ledger.
package audit

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // sqlite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Record is one audit ledger entry for a processed row.
type Record struct {
	Timestamp            time.Time
	Filename             string
	NotificationID       string
	TransactionID        string
	LabSequenceID        string
	DocumentReferenceIDs []string
	Status               string
	Extra                map[string]string
}

// Ledger is the append-only audit store. Records are never updated or
// deleted through this API.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the ledger database at path and
// applies pending schema migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: opening ledger %s: %w", path, err)
	}

	// Sole-writer: the batch loop is sequential, one connection suffices
	// and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{db: db, logger: logger}, nil
}

// runMigrations applies all pending schema migrations to the database.
// Uses the goose v3 Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("audit: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("audit: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("audit: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Append writes one record. A zero Timestamp is filled with the current
// time.
func (l *Ledger) Append(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	docIDs, err := json.Marshal(rec.DocumentReferenceIDs)
	if err != nil {
		return fmt.Errorf("audit: encoding document ids: %w", err)
	}

	extra := []byte("{}")
	if len(rec.Extra) > 0 {
		extra, err = json.Marshal(rec.Extra)
		if err != nil {
			return fmt.Errorf("audit: encoding extra fields: %w", err)
		}
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO audit_log
			(timestamp, filename, notification_id, transaction_id,
			 lab_sequence_id, document_reference_ids, status, extra)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339), rec.Filename,
		rec.NotificationID, rec.TransactionID, rec.LabSequenceID,
		string(docIDs), rec.Status, string(extra),
	)
	if err != nil {
		return fmt.Errorf("audit: inserting record: %w", err)
	}

	l.logger.Debug("audit record written",
		slog.String("filename", rec.Filename),
		slog.String("status", rec.Status),
	)

	return nil
}

// Recent returns up to limit records, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT timestamp, filename, notification_id, transaction_id,
			lab_sequence_id, document_reference_ids, status, extra
			FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: querying records: %w", err)
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		var (
			rec        Record
			ts         string
			docIDsJSON string
			extraJSON  string
		)

		if err := rows.Scan(&ts, &rec.Filename, &rec.NotificationID,
			&rec.TransactionID, &rec.LabSequenceID, &docIDsJSON,
			&rec.Status, &extraJSON); err != nil {
			return nil, fmt.Errorf("audit: scanning record: %w", err)
		}

		rec.Timestamp, _ = time.Parse(time.RFC3339, ts) //nolint:errcheck // written by Append in RFC3339

		if err := json.Unmarshal([]byte(docIDsJSON), &rec.DocumentReferenceIDs); err != nil {
			return nil, fmt.Errorf("audit: decoding document ids: %w", err)
		}

		if err := json.Unmarshal([]byte(extraJSON), &rec.Extra); err != nil {
			return nil, fmt.Errorf("audit: decoding extra fields: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterating records: %w", err)
	}

	return records, nil
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
