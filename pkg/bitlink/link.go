// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

// Package bitlink implements the two bit-serial frame endpoints of the
// estimator pipeline: a receiver that recovers 16-bit measurement words from
// a select-framed input stream, and a transmitter that shifts latched
// estimates out to a downstream master on request.
//
// Line-sample events cross byte-oriented transports (serial, WebSocket) one
// byte per event:
//
//	input event byte:    bit0 = data line level, bit1 = select line level
//	downstream byte:     bit0 = transmit clock strobe, bit1 = request line level
//	upstream reply byte: bit0 = output data level
//
// Both the select and request lines are active low, so a set level bit means
// the line is idle.
package bitlink

// WordBits is the fixed frame width. Variable widths are out of scope.
const WordBits = 16

// Sentinel is transmitted when a request arrives with no fresh estimate
// latched. By protocol convention only: 0xFFFF is also a legitimate estimate.
const Sentinel = 0xFFFF

// Wire event bit assignments.
const (
	wireData   = 0x01 // input: data line level
	wireSelect = 0x02 // input: select line level (active low)
	wireClock  = 0x01 // downstream: transmit clock strobe
	wireReq    = 0x02 // downstream: request line level (active low)
	wireOut    = 0x01 // reply: output data level
)

// Sample is one input line-sample event: the data-bit level at a clock edge
// and whether the framing (select) line is asserted at that instant.
type Sample struct {
	Bit    bool
	Framed bool
}

// DecodeSample unpacks an input wire event byte. The select line is active
// low, so a clear level bit means framing is asserted.
func DecodeSample(b byte) Sample {
	return Sample{
		Bit:    b&wireData != 0,
		Framed: b&wireSelect == 0,
	}
}

// EncodeSample packs a Sample into its wire event byte.
func EncodeSample(s Sample) byte {
	var b byte
	if s.Bit {
		b |= wireData
	}
	if !s.Framed {
		b |= wireSelect
	}
	return b
}

// TxEvent is one downstream line event: the request line level and whether
// this event carries a transmit clock edge.
type TxEvent struct {
	Requested bool
	Clock     bool
}

// DecodeTxEvent unpacks a downstream wire event byte. The request line is
// active low.
func DecodeTxEvent(b byte) TxEvent {
	return TxEvent{
		Requested: b&wireReq == 0,
		Clock:     b&wireClock != 0,
	}
}

// EncodeTxEvent packs a TxEvent into its wire event byte.
func EncodeTxEvent(e TxEvent) byte {
	var b byte
	if !e.Requested {
		b |= wireReq
	}
	if e.Clock {
		b |= wireClock
	}
	return b
}

// EncodeReply packs an output data level into a reply byte.
func EncodeReply(bit bool) byte {
	if bit {
		return wireOut
	}
	return 0
}

// DecodeReply unpacks the output data level from a reply byte.
func DecodeReply(b byte) bool {
	return b&wireOut != 0
}

// SwapBytes applies the byte-order correction for the physical source, which
// transmits its low-order byte first.
func SwapBytes(w uint16) uint16 {
	return (w<<8 | w>>8) & 0xFFFF
}
