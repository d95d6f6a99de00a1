// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

// Package trace records (timestamp, true value, measurement, estimate)
// tuples for offline verification. Recording is read-only with respect to
// the pipeline: it observes taps and never feeds back into core state.
//
// Two backends are provided, selected by file extension: CSV for quick
// plotting and a SQLite store for longer captures.
package trace

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is one observed pipeline event. Truth is NaN-free engineering
// convenience: simulated runs know it, hardware runs record zero.
type Record struct {
	RunID       string
	Timestamp   time.Time
	Truth       float64
	Measurement int16
	Estimate    int16
}

// Writer persists records. Implementations are not safe for concurrent use;
// the recording collaborator serializes writes.
type Writer interface {
	Write(Record) error
	Close() error
}

// Reader loads a full trace back for reporting.
type Reader interface {
	ReadAll() ([]Record, error)
	Close() error
}

// NewRunID returns a fresh identifier for a capture session.
func NewRunID() string {
	return uuid.NewString()
}

// OpenWriter creates a trace writer for path, choosing the backend from the
// file extension (.csv, or .db/.sqlite for SQLite).
func OpenWriter(path string) (Writer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVWriter(path)
	case ".db", ".sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported trace format: %s", path)
	}
}

// OpenReader opens an existing trace for reading, by file extension.
func OpenReader(path string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVReader(path)
	case ".db", ".sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported trace format: %s", path)
	}
}
