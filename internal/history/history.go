// Package history persists conversion-run summaries to PostgreSQL.
//
// The store is optional: the server records runs only when a history
// database is configured, and a recording failure never fails the
// conversion it describes. One row is written per completed run.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxStoredErrors caps how many error lines are kept per run. The full list
// lives in the task status; the history row only needs enough to triage.
const maxStoredErrors = 10

const schema = `
CREATE TABLE IF NOT EXISTS conversion_runs (
	id                 BIGSERIAL PRIMARY KEY,
	task_id            UUID NOT NULL,
	output_file        TEXT NOT NULL,
	files_processed    INTEGER NOT NULL,
	files_with_errors  INTEGER NOT NULL,
	records_processed  INTEGER NOT NULL,
	duplicates_skipped INTEGER NOT NULL,
	elapsed_ms         BIGINT NOT NULL,
	errors             TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store records completed conversion runs.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool, verifies connectivity, and ensures the
// conversion_runs table exists.
func Connect(ctx context.Context, url string, maxConns, minConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse history database URL: %w", err)
	}
	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = int32(minConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect history database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// RunRecord is one conversion run's summary.
type RunRecord struct {
	TaskID            string
	OutputFile        string
	FilesProcessed    int
	FilesWithErrors   int
	RecordsProcessed  int
	DuplicatesSkipped int
	Elapsed           time.Duration
	Errors            []string
	CreatedAt         time.Time
}

// RecordRun inserts one completed run.
func (s *Store) RecordRun(ctx context.Context, rec RunRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversion_runs
			(task_id, output_file, files_processed, files_with_errors,
			 records_processed, duplicates_skipped, elapsed_ms, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		toUUID(rec.TaskID),
		rec.OutputFile,
		int32(rec.FilesProcessed),
		int32(rec.FilesWithErrors),
		int32(rec.RecordsProcessed),
		int32(rec.DuplicatesSkipped),
		rec.Elapsed.Milliseconds(),
		toText(joinErrors(rec.Errors)),
	)
	if err != nil {
		return fmt.Errorf("insert conversion run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT task_id, output_file, files_processed, files_with_errors,
		       records_processed, duplicates_skipped, elapsed_ms, errors, created_at
		FROM conversion_runs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversion runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			taskID    pgtype.UUID
			errText   pgtype.Text
			elapsedMS int64
			rec       RunRecord
		)
		err := rows.Scan(&taskID, &rec.OutputFile, &rec.FilesProcessed,
			&rec.FilesWithErrors, &rec.RecordsProcessed, &rec.DuplicatesSkipped,
			&elapsedMS, &errText, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan conversion run: %w", err)
		}
		rec.TaskID = uuidToString(taskID)
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if errText.Valid && errText.String != "" {
			rec.Errors = strings.Split(errText.String, "\n")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// joinErrors flattens the error list to one line-delimited value, capped at
// maxStoredErrors with a trailing count of what was dropped.
func joinErrors(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) > maxStoredErrors {
		kept := append([]string(nil), errs[:maxStoredErrors]...)
		kept = append(kept, fmt.Sprintf("...and %d more errors", len(errs)-maxStoredErrors))
		return strings.Join(kept, "\n")
	}
	return strings.Join(errs, "\n")
}

// toText converts a string to pgtype.Text, invalid when empty.
func toText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// toUUID converts a string to pgtype.UUID, invalid when unparseable.
func toUUID(s string) pgtype.UUID {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// uuidToString converts a pgtype.UUID to its string representation.
func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
