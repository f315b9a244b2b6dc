package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb"
	"github.com/plc-diagram/backend/internal/models"
)

// HistoryStore keeps one row per generation run in a DuckDB file, so the
// frontend can list recent diagrams and their statistics without re-reading
// any L5X export.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore opens (or creates) the history database at dbPath.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		_, err := execer.ExecContext(context.Background(),
			"PRAGMA enable_progress_bar=false", nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS generations (
			id               VARCHAR PRIMARY KEY,
			file_id          VARCHAR NOT NULL,
			file_name        VARCHAR,
			program          VARCHAR,
			routine          VARCHAR,
			tag              VARCHAR,
			grammar          VARCHAR,
			state_count      INTEGER,
			transition_count INTEGER,
			duration_ms      BIGINT,
			created_at       TIMESTAMP
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating generations table: %w", err)
	}

	return &HistoryStore{db: db}, nil
}

// Record inserts one generation run. The record's ID and CreatedAt are
// filled in when empty.
func (h *HistoryStore) Record(rec *models.GenerationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := h.db.Exec(`
		INSERT INTO generations
			(id, file_id, file_name, program, routine, tag, grammar,
			 state_count, transition_count, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FileID, rec.FileName, rec.Program, rec.Routine,
		rec.Tag, rec.Grammar, rec.StateCount, rec.TransitionCount,
		rec.DurationMs, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording generation: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (h *HistoryStore) Recent(limit int) ([]*models.GenerationRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := h.db.Query(`
		SELECT id, file_id, file_name, program, routine, tag, grammar,
		       state_count, transition_count, duration_ms, created_at
		FROM generations
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying generation history: %w", err)
	}
	defer rows.Close()

	var out []*models.GenerationRecord
	for rows.Next() {
		rec := &models.GenerationRecord{}
		if err := rows.Scan(&rec.ID, &rec.FileID, &rec.FileName, &rec.Program,
			&rec.Routine, &rec.Tag, &rec.Grammar, &rec.StateCount,
			&rec.TransitionCount, &rec.DurationMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning generation row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountForFile returns how many runs are recorded for one file.
func (h *HistoryStore) CountForFile(fileID string) (int, error) {
	var n int
	err := h.db.QueryRow(
		`SELECT COUNT(*) FROM generations WHERE file_id = ?`, fileID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting generations: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}
