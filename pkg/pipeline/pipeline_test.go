// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package pipeline

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/kilnworks/icebridge/pkg/bitlink"
	"github.com/kilnworks/icebridge/pkg/estimate"
	"github.com/kilnworks/icebridge/pkg/stimulus"
)

// duplex joins two pipes into the downstream io.ReadWriter: the test writes
// request/clock events into one end and reads reply bytes from the other.
type duplex struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (d duplex) Read(p []byte) (int, error)  { return d.r.Read(p) }
func (d duplex) Write(p []byte) (int, error) { return d.w.Write(p) }

type harness struct {
	input     *io.PipeWriter
	events    *io.PipeWriter
	replies   *io.PipeReader
	estimates chan int16
	pipe      *Pipeline
	cancel    context.CancelFunc
	done      chan error
}

func startHarness(t *testing.T, est estimate.Estimator) *harness {
	t.Helper()

	inR, inW := io.Pipe()
	evR, evW := io.Pipe()
	repR, repW := io.Pipe()

	h := &harness{
		input:     inW,
		events:    evW,
		replies:   repR,
		estimates: make(chan int16, 64),
		done:      make(chan error, 1),
	}

	h.pipe = New(est, Taps{
		OnEstimate: func(x int16) { h.estimates <- x },
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		h.done <- h.pipe.Run(ctx, inR, duplex{r: evR, w: repW})
	}()

	t.Cleanup(func() {
		cancel()
		inW.Close()
		evW.Close()
		repR.Close()
		select {
		case <-h.done:
		case <-time.After(time.Second):
			t.Error("pipeline did not stop")
		}
	})
	return h
}

// sendFrame feeds one measurement word through the input link and waits for
// the resulting validity pulse.
func (h *harness) sendFrame(t *testing.T, z int16) int16 {
	t.Helper()
	if _, err := h.input.Write(stimulus.EncodeFrame(z)); err != nil {
		t.Fatalf("input write: %v", err)
	}
	select {
	case x := <-h.estimates:
		return x
	case <-time.After(time.Second):
		t.Fatal("no validity pulse within 1s")
		return 0
	}
}

// requestWord runs one full downstream request cycle and returns the word
// read off the reply bytes.
func (h *harness) requestWord(t *testing.T) uint16 {
	t.Helper()

	events := make([]byte, 0, bitlink.WordBits+2)
	events = append(events, bitlink.EncodeTxEvent(bitlink.TxEvent{Requested: true}))
	for i := 0; i < bitlink.WordBits; i++ {
		events = append(events, bitlink.EncodeTxEvent(bitlink.TxEvent{Requested: true, Clock: true}))
	}
	if _, err := h.events.Write(events); err != nil {
		t.Fatalf("event write: %v", err)
	}

	replies := make([]byte, bitlink.WordBits)
	if _, err := io.ReadFull(h.replies, replies); err != nil {
		t.Fatalf("reply read: %v", err)
	}
	if _, err := h.events.Write([]byte{bitlink.EncodeTxEvent(bitlink.TxEvent{Requested: false})}); err != nil {
		t.Fatalf("deassert write: %v", err)
	}

	var w uint16
	for _, b := range replies {
		w <<= 1
		if bitlink.DecodeReply(b) {
			w |= 1
		}
	}
	return w
}

// ============================================================
// End-to-End
// ============================================================

func TestPipeline_EndToEnd(t *testing.T) {
	h := startHarness(t, estimate.NewFixedGain())

	// Known fixed-gain trajectory for a constant measurement.
	if x := h.sendFrame(t, 1000); x != 423 {
		t.Errorf("first estimate = %d, expected 423", x)
	}
	if x := h.sendFrame(t, 1000); x != 667 {
		t.Errorf("second estimate = %d, expected 667", x)
	}

	if !h.pipe.Transmitter().Available() {
		t.Error("estimate latched but transmitter reports nothing available")
	}

	// The downstream master picks up the latest estimate.
	if w := h.requestWord(t); int16(w) != 667 {
		t.Errorf("transmitted %d, expected 667", int16(w))
	}
	if h.pipe.Transmitter().Available() {
		t.Error("delivered estimate still reported available")
	}

	// No pulses since: the next request gets the sentinel, not a repeat.
	if w := h.requestWord(t); w != bitlink.Sentinel {
		t.Errorf("second transmission = 0x%04X, expected sentinel", w)
	}

	snap := h.pipe.Stats().Snapshot()
	if snap.FramesReceived != 2 || snap.Updates != 2 {
		t.Errorf("counters: frames=%d updates=%d, expected 2/2", snap.FramesReceived, snap.Updates)
	}
	if snap.Transmissions != 2 || snap.Sentinels != 1 {
		t.Errorf("tx counters: %d transmissions, %d sentinels", snap.Transmissions, snap.Sentinels)
	}
}

func TestPipeline_PartialFrameDiscarded(t *testing.T) {
	h := startHarness(t, estimate.NewFixedGain())

	// Nine bits, then an idle gap: nothing may reach the estimator.
	partial := stimulus.EncodeFrame(32767)[:9]
	if _, err := h.input.Write(partial); err != nil {
		t.Fatal(err)
	}
	if _, err := h.input.Write(stimulus.EncodeIdle(4)); err != nil {
		t.Fatal(err)
	}

	// A clean frame afterwards is received with a counter starting at 0.
	if x := h.sendFrame(t, 1000); x != 423 {
		t.Errorf("estimate after discarded partial = %d, expected 423", x)
	}

	snap := h.pipe.Stats().Snapshot()
	if snap.PartialDiscards != 1 {
		t.Errorf("PartialDiscards = %d, expected 1", snap.PartialDiscards)
	}
}

func TestPipeline_BackToBackFrames(t *testing.T) {
	h := startHarness(t, estimate.NewFixedGain())

	// Two frames in one burst with select held asserted throughout. The
	// receiver publishes both; the estimator sees either both (two updates,
	// x=667) or the second overwriting the first in the mailbox (one update
	// on the latest frame, x=423). Anything else is a torn handoff.
	burst := append(stimulus.EncodeFrame(1000), stimulus.EncodeFrame(1000)...)
	if _, err := h.input.Write(burst); err != nil {
		t.Fatal(err)
	}

	last := <-h.estimates
	select {
	case last = <-h.estimates:
	case <-time.After(200 * time.Millisecond):
	}

	if last != 423 && last != 667 {
		t.Errorf("estimate after burst = %d, expected 423 or 667", last)
	}

	snap := h.pipe.Stats().Snapshot()
	if snap.FramesReceived != 2 {
		t.Errorf("FramesReceived = %d, expected 2", snap.FramesReceived)
	}
	if snap.Updates == 0 || snap.Updates > 2 {
		t.Errorf("Updates = %d, expected 1 or 2", snap.Updates)
	}
}

func TestPipeline_AdaptiveStrategy(t *testing.T) {
	est, err := estimate.New(estimate.StrategyAdaptive, 1<<30, 0, 1<<30)
	if err != nil {
		t.Fatal(err)
	}
	h := startHarness(t, est)

	// P0 = R, Q = 0: the first gain is exactly one half.
	if x := h.sendFrame(t, 1000); x != 500 {
		t.Errorf("first adaptive estimate = %d, expected 500", x)
	}
}

func TestPipeline_AdaptiveHoldsReported(t *testing.T) {
	est, err := estimate.New(estimate.StrategyAdaptive, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	h := startHarness(t, est)

	// Zero total variance: every update is absorbed as a hold, re-affirming
	// x = 0 without moving it.
	if x := h.sendFrame(t, 1000); x != 0 {
		t.Errorf("held estimate = %d, expected 0", x)
	}
	if x := h.sendFrame(t, -2000); x != 0 {
		t.Errorf("held estimate = %d, expected 0", x)
	}

	snap := h.pipe.Stats().Snapshot()
	if snap.Holds != 2 {
		t.Errorf("Snapshot.Holds = %d, expected 2", snap.Holds)
	}
	if snap.Updates != 2 {
		t.Errorf("Snapshot.Updates = %d, expected 2", snap.Updates)
	}
	if snap.Saturations != 0 {
		t.Errorf("Snapshot.Saturations = %d, expected 0", snap.Saturations)
	}
}
