// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

// Package estimate implements the fixed-point recursive estimator that sits
// between the frame receiver and the frame transmitter.
//
// Two interchangeable update strategies are provided: a fixed steady-state
// gain (the default) and a full adaptive covariance-based filter with
// parameterizable noise variances. Both perform exactly one state update per
// measurement frame and report a one-shot validity pulse.
package estimate

import "fmt"

// Estimator consumes one measurement word per call and returns the updated
// state estimate with a validity pulse. Updates are edge-triggered: one call
// per frame-ready event, never re-run for a level.
type Estimator interface {
	Update(z int16) (estimate int16, valid bool)
	Estimate() int16
}

// Strategy names accepted by New.
const (
	StrategyFixed    = "fixed"
	StrategyAdaptive = "adaptive"
)

// New constructs an estimator for the named strategy. The covariance
// parameters are ignored by the fixed-gain strategy.
func New(strategy string, initialP, processNoise, measurementNoise uint64) (Estimator, error) {
	switch strategy {
	case StrategyFixed, "":
		return NewFixedGain(), nil
	case StrategyAdaptive:
		return NewAdaptive(initialP, processNoise, measurementNoise), nil
	default:
		return nil, fmt.Errorf("unknown estimator strategy: %q", strategy)
	}
}
