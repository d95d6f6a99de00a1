// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the pipeline counters, safe to hand to
// a display or trace collaborator.
type Snapshot struct {
	StartTime time.Time

	Samples         uint64
	FramesReceived  uint64
	PartialDiscards uint64
	Updates         uint64
	Holds           uint64
	Saturations     uint64
	Transmissions   uint64
	Sentinels       uint64
	Aborts          uint64

	LastFrame    uint16
	LastEstimate int16

	// Rates are filled in by CalculateRates.
	FrameRate  float64
	UpdateRate float64
}

// CalculateRates derives per-second rates from the counters.
func (s *Snapshot) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed <= 0 {
		return
	}
	s.FrameRate = float64(s.FramesReceived) / elapsed
	s.UpdateRate = float64(s.Updates) / elapsed
}

// String renders a one-block summary of the counters.
func (s *Snapshot) String() string {
	return fmt.Sprintf(
		"Pipeline Statistics\n"+
			"  Samples:        %d\n"+
			"  Frames:         %d (%.1f/s, %d partial discards)\n"+
			"  Updates:        %d (%.1f/s, %d held, %d saturated)\n"+
			"  Transmissions:  %d (%d sentinel, %d aborted)\n"+
			"  Last frame:     0x%04X\n"+
			"  Last estimate:  %d\n",
		s.Samples,
		s.FramesReceived, s.FrameRate, s.PartialDiscards,
		s.Updates, s.UpdateRate, s.Holds, s.Saturations,
		s.Transmissions, s.Sentinels, s.Aborts,
		s.LastFrame, s.LastEstimate,
	)
}

// Statistics tracks pipeline counters across the three timing domains.
type Statistics struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewStatistics creates a statistics tracker starting now.
func NewStatistics() *Statistics {
	return &Statistics{snap: Snapshot{StartTime: time.Now()}}
}

func (s *Statistics) recordSample() {
	s.mu.Lock()
	s.snap.Samples++
	s.mu.Unlock()
}

func (s *Statistics) recordFrame(v uint16) {
	s.mu.Lock()
	s.snap.FramesReceived++
	s.snap.LastFrame = v
	s.mu.Unlock()
}

func (s *Statistics) setDiscards(n uint64) {
	s.mu.Lock()
	s.snap.PartialDiscards = n
	s.mu.Unlock()
}

func (s *Statistics) recordUpdate(x int16) {
	s.mu.Lock()
	s.snap.Updates++
	s.snap.LastEstimate = x
	s.mu.Unlock()
}

func (s *Statistics) setEstimatorCounters(saturations, holds uint64) {
	s.mu.Lock()
	s.snap.Saturations = saturations
	s.snap.Holds = holds
	s.mu.Unlock()
}

func (s *Statistics) setTransmitCounters(transmissions, sentinels, aborts uint64) {
	s.mu.Lock()
	s.snap.Transmissions = transmissions
	s.snap.Sentinels = sentinels
	s.snap.Aborts = aborts
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters with rates calculated.
func (s *Statistics) Snapshot() Snapshot {
	s.mu.Lock()
	snap := s.snap
	s.mu.Unlock()
	snap.CalculateRates()
	return snap
}
