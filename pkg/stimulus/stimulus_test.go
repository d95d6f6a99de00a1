// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package stimulus

import (
	"testing"

	"github.com/kilnworks/icebridge/pkg/bitlink"
)

func TestEncodeFrame_RoundTripsThroughReceiver(t *testing.T) {
	tests := []int16{0, 1000, -1000, 32767, -32768, 0x3412}

	for _, z := range tests {
		rx := bitlink.NewReceiver()
		var got uint16
		var ready bool
		for _, b := range EncodeFrame(z) {
			if f, ok := rx.Clock(bitlink.DecodeSample(b)); ok {
				got, ready = f, true
			}
		}
		if !ready {
			t.Fatalf("no frame recovered for %d", z)
		}
		if int16(got) != z {
			t.Errorf("recovered %d, expected %d", int16(got), z)
		}
	}
}

func TestEncodeIdle_ResetsReceiver(t *testing.T) {
	rx := bitlink.NewReceiver()

	// Partial frame, idle gap, then a clean frame.
	partial := EncodeFrame(0x7F7F)[:5]
	for _, b := range partial {
		rx.Clock(bitlink.DecodeSample(b))
	}
	for _, b := range EncodeIdle(3) {
		rx.Clock(bitlink.DecodeSample(b))
	}

	var got uint16
	var ready bool
	for _, b := range EncodeFrame(1234) {
		if f, ok := rx.Clock(bitlink.DecodeSample(b)); ok {
			got, ready = f, true
		}
	}
	if !ready || int16(got) != 1234 {
		t.Fatalf("recovered (%d, %v), expected (1234, true)", int16(got), ready)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	cfg := Config{Waveform: WaveSine, Level: 0, Amplitude: 8000, Period: 50, NoiseSigma: 100, Seed: 7}

	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 200; i++ {
		ta, za := a.Next()
		tb, zb := b.Next()
		if ta != tb || za != zb {
			t.Fatalf("divergence at frame %d: (%v, %d) vs (%v, %d)", i, ta, za, tb, zb)
		}
	}
}

func TestGenerator_StepWaveform(t *testing.T) {
	g, err := New(Config{Waveform: WaveStep, Level: 5000, Period: 10})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		truth, z := g.Next()
		if truth != 0 || z != 0 {
			t.Fatalf("frame %d before step: truth=%v z=%d", i, truth, z)
		}
	}
	truth, z := g.Next()
	if truth != 5000 || z != 5000 {
		t.Fatalf("frame after step: truth=%v z=%d", truth, z)
	}
}

func TestGenerator_NoiseSaturatesAtRails(t *testing.T) {
	g, err := New(Config{Waveform: WaveConstant, Level: 40000, NoiseSigma: 0})
	if err != nil {
		t.Fatal(err)
	}
	_, z := g.Next()
	if z != 32767 {
		t.Errorf("out-of-range level quantized to %d, expected saturation at 32767", z)
	}
}

func TestGenerator_UnknownWaveform(t *testing.T) {
	if _, err := New(Config{Waveform: "sawtooth"}); err == nil {
		t.Error("expected error for unknown waveform")
	}
}
