// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kilnworks/icebridge/pkg/bitlink"
	"github.com/kilnworks/icebridge/pkg/estimate"
	"github.com/kilnworks/icebridge/pkg/pipeline"
)

var monitorShowAll bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live terminal dashboard for the pipeline",
	Long: `Watch the pipeline run against a live sensor link.

Shows the line indicators (select level, frame ready, estimate validity),
running statistics, and a recent-event log. The downstream link is not
driven in monitor mode; the transmitter idles.

By default only frame and estimate events are logged. Use --show-all to log
raw select-line transitions too.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorShowAll, "show-all", false, "Log raw select-line transitions")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	est, err := estimate.New(strategy, initialP, processNoise, measurementNoise)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenSensorConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	// The taps capture p; they only fire once the pipeline runs, which
	// starts after the program exists.
	var p *tea.Program
	var pl *pipeline.Pipeline
	lastFramed := false
	pl = pipeline.New(est, pipeline.Taps{
		OnSample: func(s bitlink.Sample) {
			// Per-sample messages would flood the UI; forward level
			// transitions only.
			if s.Framed != lastFramed {
				lastFramed = s.Framed
				p.Send(lineMsg{framed: s.Framed})
			}
		},
		OnFrame: func(w uint16) {
			p.Send(frameMsg{word: w})
		},
		OnEstimate: func(x int16) {
			p.Send(estimateMsg{value: x, snap: pl.Stats().Snapshot()})
		},
	})

	p = tea.NewProgram(initialMonitorModel(connInfo, pl))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		err := pl.Run(ctx, conn, nil)
		if err != nil && ctx.Err() == nil {
			p.Send(connLostMsg{err: err})
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
