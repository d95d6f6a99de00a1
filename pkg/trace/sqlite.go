// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package trace

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists trace records in a single-table SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trace db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trace (
			run_id       TEXT,
			timestamp    TIMESTAMP,
			truth        DOUBLE,
			measurement  INTEGER,
			estimate     INTEGER
		);
		CREATE INDEX IF NOT EXISTS trace_run ON trace(run_id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create trace schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Write inserts one record.
func (s *SQLiteStore) Write(r Record) error {
	_, err := s.db.Exec(
		"INSERT INTO trace (run_id, timestamp, truth, measurement, estimate) VALUES (?, ?, ?, ?, ?)",
		r.RunID, r.Timestamp.Format(time.RFC3339Nano), r.Truth, int64(r.Measurement), int64(r.Estimate),
	)
	return err
}

// ReadAll loads every record in timestamp order.
func (s *SQLiteStore) ReadAll() ([]Record, error) {
	rows, err := s.db.Query(
		"SELECT run_id, timestamp, truth, measurement, estimate FROM trace ORDER BY timestamp",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r  Record
			ts string
			z  int64
			x  int64
		)
		if err := rows.Scan(&r.RunID, &ts, &r.Truth, &z, &x); err != nil {
			return nil, err
		}
		r.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", ts, err)
		}
		r.Measurement = int16(z)
		r.Estimate = int16(x)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
