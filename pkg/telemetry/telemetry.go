// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

// Package telemetry encodes pipeline status frames as CBOR for publishing
// over a WebSocket link. One frame is emitted per estimator validity pulse;
// consumers are display-only and never feed back into the pipeline.
package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Frame is one published status tuple.
type Frame struct {
	Timestamp   int64  `cbor:"0,keyasint"` // unix milliseconds
	Measurement int16  `cbor:"1,keyasint"`
	Estimate    int16  `cbor:"2,keyasint"`
	Frames      uint64 `cbor:"3,keyasint"` // frames received so far
	Updates     uint64 `cbor:"4,keyasint"` // validity pulses so far
}

// Encode marshals a frame to its CBOR wire form.
func Encode(f Frame) ([]byte, error) {
	data, err := cbor.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode telemetry: %w", err)
	}
	return data, nil
}

// Decode unmarshals a CBOR wire frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := cbor.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode telemetry: %w", err)
	}
	return f, nil
}

// Publisher writes one CBOR frame per Write call, matching transports where
// each write is one message (the WebSocket connection wrapper).
type Publisher struct {
	w io.Writer
}

// NewPublisher wraps a message-oriented writer.
func NewPublisher(w io.Writer) *Publisher {
	return &Publisher{w: w}
}

// Publish encodes and sends one status frame stamped now.
func (p *Publisher) Publish(measurement, estimate int16, frames, updates uint64) error {
	data, err := Encode(Frame{
		Timestamp:   time.Now().UnixMilli(),
		Measurement: measurement,
		Estimate:    estimate,
		Frames:      frames,
		Updates:     updates,
	})
	if err != nil {
		return err
	}
	_, err = p.w.Write(data)
	return err
}
