// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package estimate

import "github.com/kilnworks/icebridge/pkg/qformat"

// Adaptive is the covariance-based strategy: a 1-D recursive filter in fixed
// point. The state x is signed Q1.15; the covariance P and the noise
// variances Q and R share the unsigned covariance format (qformat.CovWidth
// bits, qformat.CovFracBits fractional); the gain is unsigned Q1.31.
//
// One width constant sizes P everywhere: the field P is stored in, the
// saturation applied after the covariance update, and the headroom analysis
// for the gain division all use qformat.CovWidth.
type Adaptive struct {
	x int16
	p uint64

	q uint64 // process-noise variance, covariance format
	r uint64 // measurement-noise variance, covariance format

	gain uint64 // last computed gain, Q1.31, held across zero-variance frames

	// Saturations counts state or covariance updates clamped at an extreme.
	Saturations uint64
	// Holds counts zero-total-variance frames absorbed without an update.
	Holds uint64
}

// NewAdaptive creates an adaptive estimator from x = 0 with the given
// initial covariance and noise variances, all in the covariance Q-format.
func NewAdaptive(initialP, processNoise, measurementNoise uint64) *Adaptive {
	return &Adaptive{
		p: qformat.SaturateUnsigned(initialP, qformat.CovWidth),
		q: qformat.SaturateUnsigned(processNoise, qformat.CovWidth),
		r: qformat.SaturateUnsigned(measurementNoise, qformat.CovWidth),
	}
}

// SetNoise replaces the externally supplied noise variances. They may change
// between updates but never mid-update; the caller serializes with Update.
func (a *Adaptive) SetNoise(processNoise, measurementNoise uint64) {
	a.q = qformat.SaturateUnsigned(processNoise, qformat.CovWidth)
	a.r = qformat.SaturateUnsigned(measurementNoise, qformat.CovWidth)
}

// Update runs one predict/correct cycle on the measurement z.
//
// With CovWidth = 32 and GainFracBits = 31, every intermediate below fits a
// uint64/int64: pPrior < 2^32 so pPrior << 31 < 2^63, and |residual| <= 2^16
// so gain*residual < 2^47.
func (a *Adaptive) Update(z int16) (int16, bool) {
	// Predict: uncertainty grows by the process noise.
	pPrior := qformat.SaturateUnsigned(a.p+a.q, qformat.CovWidth)

	// Gain. Zero total variance means the division is undefined: absorb the
	// frame as "no new information", holding the previous gain and state.
	den := pPrior + a.r
	if den == 0 {
		a.Holds++
		return a.x, true
	}
	gain := (pPrior << qformat.GainFracBits) / den
	if gain > qformat.GainOne {
		// Guards a momentary negative-covariance state; gain stays in [0, 1].
		gain = qformat.GainOne
	}
	a.gain = gain

	// Correct the state with the widened innovation.
	residual := int64(z) - int64(a.x)
	correction := qformat.RoundShift(int64(gain)*residual, qformat.GainFracBits)
	x, saturated := qformat.SaturateInt16(int64(a.x) + correction)
	if saturated {
		a.Saturations++
	}
	a.x = x

	// Shrink the covariance: P <- (1 - K) * P_prior.
	scaled := qformat.RoundShiftUnsigned((qformat.GainOne-gain)*pPrior, qformat.GainFracBits)
	p := qformat.SaturateUnsigned(scaled, qformat.CovWidth)
	if p != scaled {
		a.Saturations++
	}
	a.p = p

	return a.x, true
}

// Estimate returns the current state without consuming a measurement.
func (a *Adaptive) Estimate() int16 {
	return a.x
}

// Covariance returns the current error covariance in the covariance format.
func (a *Adaptive) Covariance() uint64 {
	return a.p
}

// Gain returns the most recently computed gain in Q1.31.
func (a *Adaptive) Gain() uint64 {
	return a.gain
}
