// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package bitlink

import (
	"sync"
	"testing"
)

func TestMailbox_EmptyTake(t *testing.T) {
	m := NewMailbox[uint16]()
	if seq := m.Seq(); seq != 0 {
		t.Errorf("fresh mailbox Seq = %d, expected 0", seq)
	}
	if _, _, ok := m.Take(0); ok {
		t.Error("empty mailbox reported fresh data")
	}
}

func TestMailbox_PutTake(t *testing.T) {
	m := NewMailbox[uint16]()
	m.Put(0x1234)

	v, seq, ok := m.Take(0)
	if !ok || v != 0x1234 || seq != 1 {
		t.Fatalf("Take = (0x%04X, %d, %v), expected (0x1234, 1, true)", v, seq, ok)
	}

	// Same sequence again: no new data.
	if _, _, ok := m.Take(seq); ok {
		t.Error("stale sequence reported as fresh")
	}
}

func TestMailbox_OverwriteKeepsLatest(t *testing.T) {
	// A fast producer overwrites the slot; the slow consumer sees the latest
	// value and can tell from the sequence how far behind it fell.
	m := NewMailbox[uint16]()
	for i := 1; i <= 5; i++ {
		m.Put(uint16(i))
	}

	v, seq, ok := m.Take(0)
	if !ok {
		t.Fatal("no data after five puts")
	}
	if v != 5 {
		t.Errorf("value = %d, expected latest (5)", v)
	}
	if seq != 5 {
		t.Errorf("seq = %d, expected 5", seq)
	}
	if m.Seq() != 5 {
		t.Errorf("Seq = %d, expected 5", m.Seq())
	}
}

func TestMailbox_NotifyWakesConsumer(t *testing.T) {
	m := NewMailbox[int]()

	done := make(chan int)
	go func() {
		<-m.Wait()
		v, _, _ := m.Take(0)
		done <- v
	}()

	m.Put(42)
	if got := <-done; got != 42 {
		t.Errorf("consumer read %d, expected 42", got)
	}
}

func TestMailbox_NoTornReads(t *testing.T) {
	// Writers publish values whose halves must always agree; any torn read
	// would surface as mismatched halves.
	type pair struct{ a, b uint32 }
	m := NewMailbox[pair]()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint32(0); ; i++ {
			select {
			case <-stop:
				return
			default:
				m.Put(pair{a: i, b: ^i})
			}
		}
	}()

	var last uint64
	for n := 0; n < 10000; n++ {
		v, seq, ok := m.Take(last)
		if !ok {
			continue
		}
		last = seq
		if v.b != ^v.a {
			t.Fatalf("torn read: a=%08X b=%08X", v.a, v.b)
		}
	}
	close(stop)
	wg.Wait()
}
