// Package store persists run outputs to a SQLite file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"brightedge-go-etl/internal/models"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT NOT NULL,
	total_items INTEGER NOT NULL,
	items_by_type TEXT NOT NULL,
	demoted_count INTEGER NOT NULL DEFAULT 0,
	duration_seconds REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_data (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	filename TEXT NOT NULL,
	source_index TEXT,
	data_type TEXT,
	data_json TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS schemas (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	filename TEXT NOT NULL,
	schema_json TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_processed_data_run ON processed_data(run_id);
`

type Store struct {
	db *sql.DB
}

// RunInfo is one row of the runs table.
type RunInfo struct {
	RunID           string
	Filename        string
	StartedAt       time.Time
	EndedAt         time.Time
	TotalItems      int
	ItemsByType     map[models.ContentType]int
	DemotedCount    int
	DurationSeconds float64
}

// StoredRow is one persisted table row.
type StoredRow struct {
	SourceIndex string
	DataType    string
	Data        json.RawMessage
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps writers from contending on the file lock.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores the run metadata, every table row and the schema in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, res models.Result) error {
	md := res.Metadata
	byType, err := json.Marshal(md.ItemsByType)
	if err != nil {
		return fmt.Errorf("encode items_by_type: %w", err)
	}
	schemaJSON, err := json.Marshal(res.Schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, filename, started_at, ended_at, total_items, items_by_type, demoted_count, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, md.RunID, md.Filename, md.StartTime.UTC().Format(time.RFC3339Nano), md.EndTime.UTC().Format(time.RFC3339Nano),
		md.TotalItems, string(byType), md.DemotedCount, md.DurationSeconds); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO processed_data (run_id, filename, source_index, data_type, data_json)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare rows: %w", err)
	}
	defer stmt.Close()
	for i, row := range res.Table.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		si, _ := row.Get(models.FieldSourceIndex)
		dt, _ := row.Get(models.FieldTypeKey)
		if _, err := stmt.ExecContext(ctx, md.RunID, md.Filename, si, dt, string(data)); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO schemas (run_id, filename, schema_json) VALUES (?, ?, ?)
	`, md.RunID, md.Filename, string(schemaJSON)); err != nil {
		return fmt.Errorf("insert schema: %w", err)
	}
	return tx.Commit()
}

// Runs returns up to limit runs, most recent first.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, filename, started_at, ended_at, total_items, items_by_type, demoted_count, duration_seconds
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var r RunInfo
		var started, ended, byType string
		if err := rows.Scan(&r.RunID, &r.Filename, &started, &ended, &r.TotalItems, &byType,
			&r.DemotedCount, &r.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		if err := json.Unmarshal([]byte(byType), &r.ItemsByType); err != nil {
			return nil, fmt.Errorf("decode items_by_type for %s: %w", r.RunID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Rows returns the stored table rows of a run in insertion order.
func (s *Store) Rows(ctx context.Context, runID string) ([]StoredRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_index, data_type, data_json
		FROM processed_data
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []StoredRow
	for rows.Next() {
		var r StoredRow
		var si, dt sql.NullString
		var data string
		if err := rows.Scan(&si, &dt, &data); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.SourceIndex, r.DataType, r.Data = si.String, dt.String, json.RawMessage(data)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Schema returns the stored schema JSON of a run.
func (s *Store) Schema(ctx context.Context, runID string) (*models.Schema, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT schema_json FROM schemas WHERE run_id = ?`, runID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("schema for run %s: %w", runID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query schema: %w", err)
	}
	sch := models.NewSchema()
	if err := json.Unmarshal([]byte(raw), sch); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return sch, nil
}
