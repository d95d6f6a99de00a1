// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package bitlink

import "sync"

// Transmitter states.
const (
	stateIdle = iota
	statePending
	stateTransmitting
)

// Transmitter latches estimator output and shifts it out MSB-first to a
// downstream master on request.
//
// The holding register is shared between the estimator domain (Latch) and
// the downstream domain (Request/ClockOut), so every entry point takes the
// mutex.
//
// Deasserting the request line mid-word aborts back to idle and preserves
// the holding register and its available flag; an aborted transmission never
// loses an undelivered estimate.
type Transmitter struct {
	mu sync.Mutex

	holding    uint16
	available  bool
	holdingGen uint64 // bumped on every latch, to spot mid-word overwrites

	state     int
	requested bool
	shift     uint16
	count     int
	fromHold  bool   // current word came from the holding register
	loadedGen uint64 // holdingGen at load time

	transmissions uint64
	sentinels     uint64
	aborts        uint64
}

// NewTransmitter creates a Transmitter with an empty holding register and
// the output line idling high.
func NewTransmitter() *Transmitter {
	return &Transmitter{}
}

// Latch stores a fresh estimate. The availability flag arms on the first
// pulse only; the value itself is always overwritten, so a second pulse
// before the previous value was sent replaces the payload without re-arming
// a second available transition.
func (t *Transmitter) Latch(v uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.holding = v
	t.holdingGen++
	if !t.available {
		t.available = true
	}
	if t.state == stateIdle {
		t.state = statePending
	}
}

// Request consumes a request line level change. A falling edge (the line is
// active low) loads the shift register and starts transmission; deassertion
// mid-word aborts back to idle.
func (t *Transmitter) Request(asserted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if asserted && !t.requested {
		t.requested = true
		if t.state != stateTransmitting {
			if t.available {
				t.shift = t.holding
				t.fromHold = true
				t.loadedGen = t.holdingGen
			} else {
				t.shift = Sentinel
				t.fromHold = false
			}
			t.count = 0
			t.state = stateTransmitting
		}
		return
	}

	if !asserted && t.requested {
		t.requested = false
		if t.state == stateTransmitting && t.count < WordBits {
			t.aborts++
			t.settleLocked()
		}
	}
}

// ClockOut consumes one transmit clock event and returns the output line
// level for it. The line idles high outside an active word.
func (t *Transmitter) ClockOut() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != stateTransmitting || !t.requested {
		return true
	}

	bit := t.shift&0x8000 != 0
	t.shift = t.shift<<1 | 1
	t.count++

	if t.count == WordBits {
		t.transmissions++
		if t.fromHold {
			// The latched value was delivered. A latch that landed after the
			// load replaced the payload without being sent, so it stays armed
			// for the next request.
			if t.loadedGen == t.holdingGen {
				t.available = false
			}
		} else {
			t.sentinels++
		}
		t.settleLocked()
	}
	return bit
}

// Available reports whether an undelivered estimate is latched.
func (t *Transmitter) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.available
}

// Counters returns the completed, sentinel and aborted transmission counts.
func (t *Transmitter) Counters() (transmissions, sentinels, aborts uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transmissions, t.sentinels, t.aborts
}

func (t *Transmitter) settleLocked() {
	if t.available {
		t.state = statePending
	} else {
		t.state = stateIdle
	}
	t.count = 0
}
