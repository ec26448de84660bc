// Package database persists generation history in PostgreSQL.
package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/JonMunkholm/DataForge/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS generation_history (
	id            UUID PRIMARY KEY,
	fields        TEXT[] NOT NULL,
	row_count     INTEGER NOT NULL,
	seed          TEXT NOT NULL,
	seeded        BOOLEAN NOT NULL DEFAULT FALSE,
	format        TEXT NOT NULL,
	status        TEXT NOT NULL,
	rows_written  INTEGER NOT NULL DEFAULT 0,
	bytes_written BIGINT NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	ip_address    TEXT NOT NULL DEFAULT '',
	user_agent    TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS generation_history_finished_at_idx
	ON generation_history (finished_at DESC);
`

const selectColumns = `id, fields, row_count, seed, seeded, format, status,
	rows_written, bytes_written, error, ip_address, user_agent, started_at, finished_at`

// HistoryStore implements core.HistoryStore and core.HistoryPruner.
type HistoryStore struct {
	db DBTX
}

var (
	_ core.HistoryStore  = (*HistoryStore)(nil)
	_ core.HistoryPruner = (*HistoryStore)(nil)
)

// NewHistoryStore returns a store over db. Call EnsureSchema before use.
func NewHistoryStore(db DBTX) *HistoryStore {
	return &HistoryStore{db: db}
}

// EnsureSchema creates the history table if it does not exist.
func (s *HistoryStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create generation_history: %w", err)
	}
	return nil
}

// Record inserts rec. Seeds are stored as decimal text since they span
// the full uint64 range.
func (s *HistoryStore) Record(ctx context.Context, rec core.GenerationRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO generation_history (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID,
		rec.Fields,
		rec.RowCount,
		strconv.FormatUint(rec.Seed, 10),
		rec.Seeded,
		string(rec.Format),
		string(rec.Status),
		rec.RowsWritten,
		rec.BytesWritten,
		rec.Error,
		rec.IPAddress,
		rec.UserAgent,
		rec.StartedAt,
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert generation %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first. limit <= 0 means 100.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]core.GenerationRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `SELECT `+selectColumns+`
		FROM generation_history
		ORDER BY finished_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]core.GenerationRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns one record or core.ErrRecordNotFound.
func (s *HistoryStore) Get(ctx context.Context, id uuid.UUID) (core.GenerationRecord, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+`
		FROM generation_history
		WHERE id = $1`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.GenerationRecord{}, core.ErrRecordNotFound
	}
	return rec, err
}

// PruneBefore deletes records that finished before cutoff.
func (s *HistoryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM generation_history WHERE finished_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune generation history: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (core.GenerationRecord, error) {
	var (
		rec    core.GenerationRecord
		seed   string
		format string
		status string
	)
	err := row.Scan(
		&rec.ID,
		&rec.Fields,
		&rec.RowCount,
		&seed,
		&rec.Seeded,
		&format,
		&status,
		&rec.RowsWritten,
		&rec.BytesWritten,
		&rec.Error,
		&rec.IPAddress,
		&rec.UserAgent,
		&rec.StartedAt,
		&rec.FinishedAt,
	)
	if err != nil {
		return core.GenerationRecord{}, err
	}

	rec.Seed, err = strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return core.GenerationRecord{}, fmt.Errorf("generation %s: bad stored seed %q: %w", rec.ID, seed, err)
	}
	rec.Format = core.Format(format)
	rec.Status = core.GenerationStatus(status)
	return rec, nil
}
