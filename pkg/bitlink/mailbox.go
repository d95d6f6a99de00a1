// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package bitlink

import "sync"

// Mailbox is the synchronized single-slot handoff between two timing
// domains. The producer overwrites the slot; the consumer reads the latest
// value together with a sequence marker, so a fast producer can never tear a
// value mid-write and a slow consumer can always tell that new data arrived
// even if several writes landed between its reads.
type Mailbox[T any] struct {
	mu     sync.Mutex
	val    T
	seq    uint64
	notify chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{notify: make(chan struct{}, 1)}
}

// Put stores v, overwriting any unconsumed value, and wakes a waiting
// consumer. It never blocks.
func (m *Mailbox[T]) Put(v T) {
	m.mu.Lock()
	m.val = v
	m.seq++
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Take returns the current value and its sequence number if it is newer than
// lastSeq. The bool result is the consumer's ready pulse.
func (m *Mailbox[T]) Take(lastSeq uint64) (T, uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq == lastSeq {
		var zero T
		return zero, lastSeq, false
	}
	return m.val, m.seq, true
}

// Wait returns a channel that receives when new data may be available. The
// channel carries at most one pending wakeup; callers must re-check with
// Take, which tolerates spurious wakeups.
func (m *Mailbox[T]) Wait() <-chan struct{} {
	return m.notify
}

// Seq returns the current sequence number. A zero value means nothing has
// ever been put.
func (m *Mailbox[T]) Seq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}
