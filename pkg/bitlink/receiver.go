// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package bitlink

// Receiver recovers 16-bit measurement frames from the input bit stream.
//
// Reception is MSB-first into a shift accumulator. When the bit counter
// reaches WordBits the byte-swap correction is applied and the word is
// published with a one-shot ready flag. The counter then resets immediately,
// so a master that leaves the select line asserted across words streams
// back-to-back frames without a new select pulse.
//
// Deasserting select at any point discards the partial frame. No partial
// frame is ever published.
type Receiver struct {
	shift uint16
	count int

	// Discards counts partial frames dropped by select deassertion.
	Discards uint64
}

// NewReceiver creates a Receiver with a cleared accumulator.
func NewReceiver() *Receiver {
	return &Receiver{}
}

// Clock consumes one input line sample. It returns the corrected frame value
// and true exactly once per completed 16-bit reception.
func (r *Receiver) Clock(s Sample) (uint16, bool) {
	if !s.Framed {
		if r.count > 0 {
			r.Discards++
		}
		r.count = 0
		r.shift = 0
		return 0, false
	}

	r.shift <<= 1
	if s.Bit {
		r.shift |= 1
	}
	r.count++

	if r.count < WordBits {
		return 0, false
	}

	word := SwapBytes(r.shift)
	r.count = 0
	r.shift = 0
	return word, true
}

// Pending reports how many bits of the current partial frame have been
// accumulated. Observational only.
func (r *Receiver) Pending() int {
	return r.count
}
