// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

// Package qformat provides the fixed-point arithmetic used throughout the
// estimator pipeline.
//
// State and measurement words are signed Q1.15 (16-bit, 15 fractional bits).
// The error covariance and the noise variances are unsigned Q2.30 stored in a
// wide word and saturated to CovWidth bits. The adaptive gain is unsigned
// Q1.31. A single width constant sizes the covariance everywhere it appears.
package qformat

// Signed Q1.15 word format
const (
	WordBits  = 16
	FracBits  = 15
	Q15One    = 1 << FracBits // 1.0 in Q1.15, representable only widened
	Q15Max    = 32767
	Q15Min    = -32768
)

// Unsigned covariance format (Q2.30 in a 32-bit field)
const (
	CovWidth    = 32
	CovFracBits = 30
	CovMax      = uint64(1)<<CovWidth - 1
)

// Unsigned gain format (Q1.31)
const (
	GainFracBits = 31
	GainOne      = uint64(1) << GainFracBits // gain of exactly 1.0
)

// RoundShift arithmetically shifts v right by n bits, rounding to nearest.
// The half-unit bias follows the sign of v so rounding is symmetric about
// zero rather than biased toward negative infinity.
func RoundShift(v int64, n uint) int64 {
	if n == 0 {
		return v
	}
	bias := int64(1) << (n - 1)
	if v >= 0 {
		return (v + bias) >> n
	}
	return -((-v + bias) >> n)
}

// RoundShiftUnsigned shifts v right by n bits, rounding to nearest.
func RoundShiftUnsigned(v uint64, n uint) uint64 {
	if n == 0 {
		return v
	}
	return (v + uint64(1)<<(n-1)) >> n
}

// SaturateInt16 clamps v to the signed 16-bit range. Out-of-range updates
// are a normal condition near the input extremes and must never wrap.
func SaturateInt16(v int64) (int16, bool) {
	if v > Q15Max {
		return Q15Max, true
	}
	if v < Q15Min {
		return Q15Min, true
	}
	return int16(v), false
}

// SaturateUnsigned clamps v to an unsigned field of the given bit width.
func SaturateUnsigned(v uint64, width uint) uint64 {
	max := uint64(1)<<width - 1
	if v > max {
		return max
	}
	return v
}

// CovFromFloat converts an engineering-unit variance into the covariance
// Q-format, saturating at the field limits. Negative inputs clamp to zero.
func CovFromFloat(f float64) uint64 {
	if f <= 0 {
		return 0
	}
	scaled := f * float64(uint64(1)<<CovFracBits)
	if scaled >= float64(CovMax) {
		return CovMax
	}
	return uint64(scaled + 0.5)
}

// CovToFloat converts a covariance word back to engineering units.
func CovToFloat(v uint64) float64 {
	return float64(v) / float64(uint64(1)<<CovFracBits)
}

// Q15FromFloat converts a value in [-1, 1) to Q1.15, saturating outside it.
func Q15FromFloat(f float64) int16 {
	scaled := f * float64(Q15One)
	if scaled >= 0 {
		scaled += 0.5
	} else {
		scaled -= 0.5
	}
	v, _ := SaturateInt16(int64(scaled))
	return v
}

// Q15ToFloat converts a Q1.15 word to its real value.
func Q15ToFloat(v int16) float64 {
	return float64(v) / float64(Q15One)
}
