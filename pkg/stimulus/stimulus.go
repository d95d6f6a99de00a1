// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

// Package stimulus generates synthetic measurement streams for exercising
// the pipeline without hardware: a deterministic waveform plus gaussian
// noise, quantized to Q1.15 and encoded to input wire events with the
// physical byte order (low byte first), so the receiver's byte-swap
// correction is exercised end to end.
package stimulus

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/kilnworks/icebridge/pkg/bitlink"
	"github.com/kilnworks/icebridge/pkg/qformat"
)

// Waveform names.
const (
	WaveConstant = "constant"
	WaveStep     = "step"
	WaveSine     = "sine"
)

// Config describes the synthetic signal. Levels and amplitudes are in raw
// Q1.15 counts.
type Config struct {
	Waveform   string
	Level      float64 // constant level / step target / sine offset
	Amplitude  float64 // sine amplitude; unused otherwise
	Period     int     // frames per sine cycle or frames before the step
	NoiseSigma float64 // gaussian measurement noise, counts
	Seed       int64
}

// Generator produces one truth/measurement pair per frame.
type Generator struct {
	cfg Config
	rng *rand.Rand
	n   int
}

// New validates the config and creates a generator.
func New(cfg Config) (*Generator, error) {
	switch cfg.Waveform {
	case WaveConstant, WaveStep, WaveSine:
	case "":
		cfg.Waveform = WaveConstant
	default:
		return nil, fmt.Errorf("unknown waveform: %q", cfg.Waveform)
	}
	if cfg.Period <= 0 {
		cfg.Period = 100
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Next returns the true signal value and the noisy quantized measurement for
// the next frame.
func (g *Generator) Next() (truth float64, z int16) {
	switch g.cfg.Waveform {
	case WaveStep:
		if g.n < g.cfg.Period {
			truth = 0
		} else {
			truth = g.cfg.Level
		}
	case WaveSine:
		phase := 2 * math.Pi * float64(g.n) / float64(g.cfg.Period)
		truth = g.cfg.Level + g.cfg.Amplitude*math.Sin(phase)
	default:
		truth = g.cfg.Level
	}
	g.n++

	noisy := truth + g.rng.NormFloat64()*g.cfg.NoiseSigma
	quantized, _ := qformat.SaturateInt16(int64(math.RoundToEven(noisy)))
	return truth, quantized
}

// EncodeFrame renders one measurement as the 16 input wire-event bytes the
// physical source would emit: low byte first, MSB-first within the word,
// select held asserted throughout.
func EncodeFrame(z int16) []byte {
	wire := bitlink.SwapBytes(uint16(z))
	out := make([]byte, 0, bitlink.WordBits)
	for i := bitlink.WordBits - 1; i >= 0; i-- {
		out = append(out, bitlink.EncodeSample(bitlink.Sample{
			Bit:    wire>>uint(i)&1 != 0,
			Framed: true,
		}))
	}
	return out
}

// EncodeIdle renders n idle line samples with the select line deasserted.
func EncodeIdle(n int) []byte {
	out := make([]byte, n)
	idle := bitlink.EncodeSample(bitlink.Sample{})
	for i := range out {
		out[i] = idle
	}
	return out
}
