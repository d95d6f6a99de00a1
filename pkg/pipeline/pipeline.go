// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

// Package pipeline wires the three pipeline stages together, one goroutine
// per timing domain: the upstream sensor domain drives the receiver, an
// internal processing domain drives the estimator, and the downstream
// consumer's domain drives the transmitter. The domains share no clock; the
// receiver→estimator handoff crosses through a sequence-numbered mailbox and
// the estimator→transmitter handoff through the transmitter's own
// mutex-guarded holding register.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kilnworks/icebridge/pkg/bitlink"
	"github.com/kilnworks/icebridge/pkg/estimate"
)

// Taps are optional observational hooks: status indicators and trace
// collaborators consume them for display or recording only. They run inline
// in the owning domain and must not feed back into core state.
type Taps struct {
	// OnSample fires for every input line sample (raw bit passthrough).
	OnSample func(bitlink.Sample)
	// OnFrame fires once per published measurement frame (ready pulse).
	OnFrame func(uint16)
	// OnEstimate fires once per estimator validity pulse.
	OnEstimate func(int16)
}

// Pipeline owns the receiver, estimator and transmitter plus the frame
// mailbox between the first two. Construct once at startup; the estimator
// state lives for the process lifetime and is never reset.
type Pipeline struct {
	rx     *bitlink.Receiver
	est    estimate.Estimator
	tx     *bitlink.Transmitter
	frames *bitlink.Mailbox[uint16]
	stats  *Statistics
	taps   Taps
}

// New creates a pipeline around the given estimator strategy.
func New(est estimate.Estimator, taps Taps) *Pipeline {
	return &Pipeline{
		rx:     bitlink.NewReceiver(),
		est:    est,
		tx:     bitlink.NewTransmitter(),
		frames: bitlink.NewMailbox[uint16](),
		stats:  NewStatistics(),
		taps:   taps,
	}
}

// Stats returns the live statistics tracker.
func (p *Pipeline) Stats() *Statistics {
	return p.stats
}

// Transmitter exposes the downstream endpoint, for callers that drive the
// request/clock lines directly (tests, simulation).
func (p *Pipeline) Transmitter() *bitlink.Transmitter {
	return p.tx
}

// Run starts the three domain loops and blocks until the context is
// cancelled or a transport fails. Reads block in the transports, so callers
// unblock a cancelled Run by closing the connections.
//
// input carries input wire-event bytes; downstream carries request/clock
// event bytes in and reply bytes out. Either may be nil, leaving that edge
// of the pipeline undriven (a stalled downstream simply leaves the
// transmitter idle indefinitely; there is no retry timer).
func (p *Pipeline) Run(ctx context.Context, input io.Reader, downstream io.ReadWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 3)

	go func() { errs <- p.receiverLoop(ctx, input) }()
	go func() { errs <- p.estimatorLoop(ctx) }()
	go func() { errs <- p.transmitterLoop(ctx, downstream) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errs:
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
}

// receiverLoop is the upstream sensor domain: it decodes line samples and
// clocks them into the receiver, publishing completed frames to the mailbox.
func (p *Pipeline) receiverLoop(ctx context.Context, input io.Reader) error {
	if input == nil {
		<-ctx.Done()
		return nil
	}

	buf := make([]byte, 256)
	for {
		n, err := input.Read(buf)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			s := bitlink.DecodeSample(buf[i])
			p.stats.recordSample()
			if p.taps.OnSample != nil {
				p.taps.OnSample(s)
			}

			frame, ready := p.rx.Clock(s)
			p.stats.setDiscards(p.rx.Discards)
			if ready {
				p.stats.recordFrame(frame)
				if p.taps.OnFrame != nil {
					p.taps.OnFrame(frame)
				}
				p.frames.Put(frame)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// estimatorLoop is the internal processing domain: exactly one update per
// frame event. A frame that arrives while a previous one is still unconsumed
// overwrites it in the mailbox; the estimator always works on the latest.
func (p *Pipeline) estimatorLoop(ctx context.Context) error {
	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.frames.Wait():
		}

		for {
			frame, seq, ok := p.frames.Take(lastSeq)
			if !ok {
				break
			}
			lastSeq = seq

			x, valid := p.est.Update(int16(frame))
			if !valid {
				continue
			}
			p.tx.Latch(uint16(x))
			p.stats.recordUpdate(x)
			switch e := p.est.(type) {
			case *estimate.FixedGain:
				p.stats.setEstimatorCounters(e.Saturations, 0)
			case *estimate.Adaptive:
				p.stats.setEstimatorCounters(e.Saturations, e.Holds)
			}
			if p.taps.OnEstimate != nil {
				p.taps.OnEstimate(x)
			}
		}
	}
}

// transmitterLoop is the downstream consumer's domain: it applies request
// line levels and transmit clock events, answering each clock event with a
// reply byte carrying the sampled output level.
func (p *Pipeline) transmitterLoop(ctx context.Context, downstream io.ReadWriter) error {
	if downstream == nil {
		<-ctx.Done()
		return nil
	}

	buf := make([]byte, 64)
	reply := make([]byte, 0, 64)
	for {
		n, err := downstream.Read(buf)
		if err != nil {
			return err
		}

		reply = reply[:0]
		for i := 0; i < n; i++ {
			e := bitlink.DecodeTxEvent(buf[i])
			p.tx.Request(e.Requested)
			if e.Clock {
				bit := p.tx.ClockOut()
				reply = append(reply, bitlink.EncodeReply(bit))
			}
		}
		p.stats.setTransmitCounters(p.tx.Counters())

		if len(reply) > 0 {
			if _, err := downstream.Write(reply); err != nil {
				return fmt.Errorf("reply write: %w", err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
