// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

var csvHeader = []string{"run_id", "timestamp", "truth", "measurement", "estimate"}

// CSVWriter appends records to a CSV file, writing the header when the file
// is fresh.
type CSVWriter struct {
	f *os.File
	w *csv.Writer
}

// NewCSVWriter opens (or creates) a CSV trace at path.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}

	w := &CSVWriter{f: f, w: csv.NewWriter(f)}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := w.w.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Write appends one record.
func (w *CSVWriter) Write(r Record) error {
	return w.w.Write([]string{
		r.RunID,
		r.Timestamp.Format(time.RFC3339Nano),
		strconv.FormatFloat(r.Truth, 'g', -1, 64),
		strconv.FormatInt(int64(r.Measurement), 10),
		strconv.FormatInt(int64(r.Estimate), 10),
	})
}

// Close flushes and closes the file.
func (w *CSVWriter) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// CSVReader loads a CSV trace.
type CSVReader struct {
	f *os.File
}

// NewCSVReader opens a CSV trace for reading.
func NewCSVReader(path string) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	return &CSVReader{f: f}, nil
}

// ReadAll parses every record in the file.
func (r *CSVReader) ReadAll() ([]Record, error) {
	cr := csv.NewReader(r.f)
	cr.FieldsPerRecord = len(csvHeader)

	var records []Record
	first := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if row[0] == csvHeader[0] {
				continue
			}
		}

		ts, err := time.Parse(time.RFC3339Nano, row[1])
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", row[1], err)
		}
		truth, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad truth %q: %w", row[2], err)
		}
		z, err := strconv.ParseInt(row[3], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad measurement %q: %w", row[3], err)
		}
		x, err := strconv.ParseInt(row[4], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad estimate %q: %w", row[4], err)
		}

		records = append(records, Record{
			RunID:       row[0],
			Timestamp:   ts,
			Truth:       truth,
			Measurement: int16(z),
			Estimate:    int16(x),
		})
	}
}

// Close closes the file.
func (r *CSVReader) Close() error {
	return r.f.Close()
}
