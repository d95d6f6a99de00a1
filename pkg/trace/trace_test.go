// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package trace

import (
	"path/filepath"
	"testing"
	"time"
)

func sampleRecords(runID string) []Record {
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	return []Record{
		{RunID: runID, Timestamp: base, Truth: 1000, Measurement: 1042, Estimate: 441},
		{RunID: runID, Timestamp: base.Add(time.Millisecond), Truth: 1000, Measurement: 961, Estimate: 661},
		{RunID: runID, Timestamp: base.Add(2 * time.Millisecond), Truth: 1000, Measurement: -32768, Estimate: 520},
	}
}

func roundTrip(t *testing.T, path string) {
	t.Helper()
	runID := NewRunID()
	want := sampleRecords(runID)

	w, err := OpenWriter(path)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	for _, r := range want {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("read %d records, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i].RunID != want[i].RunID ||
			!got[i].Timestamp.Equal(want[i].Timestamp) ||
			got[i].Truth != want[i].Truth ||
			got[i].Measurement != want[i].Measurement ||
			got[i].Estimate != want[i].Estimate {
			t.Errorf("record %d mismatch:\n  got  %+v\n  want %+v", i, got[i], want[i])
		}
	}
}

func TestCSVRoundTrip(t *testing.T) {
	roundTrip(t, filepath.Join(t.TempDir(), "trace.csv"))
}

func TestSQLiteRoundTrip(t *testing.T) {
	roundTrip(t, filepath.Join(t.TempDir(), "trace.db"))
}

func TestCSVAppendSkipsDuplicateHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	runID := NewRunID()

	for _, r := range sampleRecords(runID)[:2] {
		w, err := NewCSVWriter(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.Write(r); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}

	r, err := NewCSVReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("read %d records after two appends, expected 2", len(got))
	}
}

func TestOpenWriter_UnknownExtension(t *testing.T) {
	if _, err := OpenWriter("trace.parquet"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestNewRunID_Unique(t *testing.T) {
	if NewRunID() == NewRunID() {
		t.Error("run IDs must be unique")
	}
}
