// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package qformat

import "testing"

// ============================================================
// RoundShift Tests
// ============================================================

func TestRoundShift_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		v        int64
		n        uint
		expected int64
	}{
		{"zero", 0, 15, 0},
		{"no shift", 12345, 0, 12345},
		{"exact half rounds up", 3 << 14, 15, 2}, // 1.5 -> 2
		{"below half rounds down", (1 << 15) + (1 << 13), 15, 1},
		{"first gain step", 1000 * 13868, 15, 423},
		{"second gain step", 577 * 13868, 15, 244},
		{"negative symmetric", -1000 * 13868, 15, -423},
		{"negative half rounds away", -(3 << 14), 15, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundShift(tt.v, tt.n)
			if got != tt.expected {
				t.Errorf("RoundShift(%d, %d) = %d, expected %d", tt.v, tt.n, got, tt.expected)
			}
		})
	}
}

func TestRoundShift_Symmetry(t *testing.T) {
	// Rounding must be symmetric: RoundShift(-v) == -RoundShift(v)
	values := []int64{1, 16383, 16384, 16385, 32767, 32768, 1 << 40}
	for _, v := range values {
		pos := RoundShift(v, 15)
		neg := RoundShift(-v, 15)
		if neg != -pos {
			t.Errorf("asymmetric rounding for %d: +%d vs %d", v, pos, neg)
		}
	}
}

func TestRoundShiftUnsigned(t *testing.T) {
	if got := RoundShiftUnsigned(3<<30, 31); got != 2 {
		t.Errorf("RoundShiftUnsigned(1.5, 31) = %d, expected 2", got)
	}
	if got := RoundShiftUnsigned(0, 31); got != 0 {
		t.Errorf("RoundShiftUnsigned(0, 31) = %d, expected 0", got)
	}
}

// ============================================================
// Saturation Tests
// ============================================================

func TestSaturateInt16(t *testing.T) {
	tests := []struct {
		name      string
		v         int64
		expected  int16
		saturated bool
	}{
		{"in range", 1000, 1000, false},
		{"max exact", 32767, 32767, false},
		{"min exact", -32768, -32768, false},
		{"above max", 32768, 32767, true},
		{"far above max", 1 << 30, 32767, true},
		{"below min", -32769, -32768, true},
		{"far below min", -(1 << 30), -32768, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, sat := SaturateInt16(tt.v)
			if got != tt.expected || sat != tt.saturated {
				t.Errorf("SaturateInt16(%d) = (%d, %v), expected (%d, %v)",
					tt.v, got, sat, tt.expected, tt.saturated)
			}
		})
	}
}

func TestSaturateUnsigned(t *testing.T) {
	if got := SaturateUnsigned(CovMax+1, CovWidth); got != CovMax {
		t.Errorf("SaturateUnsigned over = %d, expected %d", got, CovMax)
	}
	if got := SaturateUnsigned(42, CovWidth); got != 42 {
		t.Errorf("SaturateUnsigned in range = %d, expected 42", got)
	}
}

// ============================================================
// Conversion Tests
// ============================================================

func TestCovFromFloat(t *testing.T) {
	if got := CovFromFloat(0); got != 0 {
		t.Errorf("CovFromFloat(0) = %d, expected 0", got)
	}
	if got := CovFromFloat(-1); got != 0 {
		t.Errorf("CovFromFloat(-1) = %d, expected 0", got)
	}
	if got := CovFromFloat(1.0); got != uint64(1)<<CovFracBits {
		t.Errorf("CovFromFloat(1.0) = %d, expected %d", got, uint64(1)<<CovFracBits)
	}
	if got := CovFromFloat(1e9); got != CovMax {
		t.Errorf("CovFromFloat(huge) = %d, expected saturation to %d", got, CovMax)
	}
}

func TestQ15RoundTrip(t *testing.T) {
	tests := []struct {
		f        float64
		expected int16
	}{
		{0, 0},
		{0.5, 16384},
		{-0.5, -16384},
		{1.0, 32767},  // saturates
		{-1.0, -32768},
		{2.0, 32767},
	}
	for _, tt := range tests {
		if got := Q15FromFloat(tt.f); got != tt.expected {
			t.Errorf("Q15FromFloat(%v) = %d, expected %d", tt.f, got, tt.expected)
		}
	}

	if got := Q15ToFloat(16384); got != 0.5 {
		t.Errorf("Q15ToFloat(16384) = %v, expected 0.5", got)
	}
}
