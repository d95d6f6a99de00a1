// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package estimate

import "github.com/kilnworks/icebridge/pkg/qformat"

// KFixed is the precomputed steady-state gain in Q1.15 (~0.4232), the
// converged behavior of the adaptive filter for the reference noise tuning.
const KFixed = 13868

// FixedGain is the steady-state-gain strategy. State is created once and
// mutated in place; there is no reset path after initialization.
type FixedGain struct {
	x int16

	// Saturations counts updates clamped at a Q1.15 extreme.
	Saturations uint64
}

// NewFixedGain creates a fixed-gain estimator starting from x = 0.
func NewFixedGain() *FixedGain {
	return &FixedGain{}
}

// Update applies one fixed-gain correction:
//
//	x <- x + round((z - x) * KFixed >> 15)
//
// The innovation is widened before subtraction so opposite-extreme z and x
// cannot overflow, and the result saturates instead of wrapping.
func (f *FixedGain) Update(z int16) (int16, bool) {
	innovation := int64(z) - int64(f.x)
	correction := qformat.RoundShift(innovation*KFixed, qformat.FracBits)

	x, saturated := qformat.SaturateInt16(int64(f.x) + correction)
	if saturated {
		f.Saturations++
	}
	f.x = x
	return f.x, true
}

// Estimate returns the current state without consuming a measurement.
func (f *FixedGain) Estimate() int16 {
	return f.x
}
