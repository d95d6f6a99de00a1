// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package cmd

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kilnworks/icebridge/pkg/estimate"
	"github.com/kilnworks/icebridge/pkg/pipeline"
	"github.com/kilnworks/icebridge/pkg/telemetry"
	"github.com/kilnworks/icebridge/pkg/trace"
)

var (
	downstreamPort string
	downstreamBaud int
	downstreamURL  string
	tracePath      string
	publishURL     string
	runStatsEvery  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline against live connections",
	Long: `Bridge a live sensor link to a downstream consumer.

The sensor link (root --port or --url flags) carries input wire events; the
downstream link carries request/clock events in and output-level replies out.
Without a downstream connection the transmitter side idles and icebridge acts
as a receive-and-filter monitor.

Optionally records every estimate to a trace file (--trace, .csv or .db) and
publishes CBOR status frames to a WebSocket sink (--publish-url).`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&downstreamPort, "downstream-port", "", "Serial port device for the downstream link")
	runCmd.Flags().IntVar(&downstreamBaud, "downstream-baud", 115200, "Downstream baud rate (serial only)")
	runCmd.Flags().StringVar(&downstreamURL, "downstream-url", "", "WebSocket URL for the downstream link")
	runCmd.Flags().StringVar(&tracePath, "trace", "", "Trace file for recorded estimates (.csv, .db)")
	runCmd.Flags().StringVar(&publishURL, "publish-url", "", "WebSocket URL to publish CBOR status frames to")
	runCmd.Flags().IntVar(&runStatsEvery, "stats-interval", 10, "Statistics log interval (seconds)")
}

func runRun(cmd *cobra.Command, args []string) error {
	est, err := estimate.New(strategy, initialP, processNoise, measurementNoise)
	if err != nil {
		return err
	}

	sensor, sensorInfo, err := OpenSensorConnection()
	if err != nil {
		return err
	}
	defer sensor.Close()
	log.Info().Str("sensor", sensorInfo).Str("strategy", strategy).Msg("sensor link open")

	var downstream io.ReadWriter
	var downConn Connection
	if downstreamPort != "" || downstreamURL != "" {
		var downInfo string
		downConn, downInfo, err = openEndpoint(downstreamPort, downstreamBaud, downstreamURL)
		if err != nil {
			return err
		}
		defer downConn.Close()
		downstream = downConn
		log.Info().Str("downstream", downInfo).Msg("downstream link open")
	} else {
		log.Info().Msg("no downstream link, transmitter idles")
	}

	var tw trace.Writer
	runID := ""
	if tracePath != "" {
		tw, err = trace.OpenWriter(tracePath)
		if err != nil {
			return err
		}
		defer tw.Close()
		runID = trace.NewRunID()
		log.Info().Str("trace", tracePath).Str("run_id", runID).Msg("trace recording")
	}

	var pub *telemetry.Publisher
	if publishURL != "" {
		sink, err := OpenWebSocketConnection(publishURL, wsUsername, "", wsNoSSLVerify)
		if err != nil {
			return err
		}
		defer sink.Close()
		pub = telemetry.NewPublisher(sink)
		log.Info().Str("publish", publishURL).Msg("telemetry publishing")
	}

	var pl *pipeline.Pipeline
	pl = pipeline.New(est, pipeline.Taps{
		// Runs in the estimator domain, one call per validity pulse, so
		// the trace writer and publisher see serialized access.
		OnEstimate: func(x int16) {
			snap := pl.Stats().Snapshot()
			if tw != nil {
				err := tw.Write(trace.Record{
					RunID:       runID,
					Timestamp:   time.Now(),
					Measurement: int16(snap.LastFrame),
					Estimate:    x,
				})
				if err != nil {
					log.Warn().Err(err).Msg("trace write failed")
				}
			}
			if pub != nil {
				if err := pub.Publish(int16(snap.LastFrame), x, snap.FramesReceived, snap.Updates); err != nil {
					log.Warn().Err(err).Msg("telemetry publish failed")
				}
			}
		},
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reads block inside the transports; closing the connections is what
	// actually unblocks the domain loops on shutdown.
	go func() {
		<-ctx.Done()
		sensor.Close()
		if downConn != nil {
			downConn.Close()
		}
	}()

	go logStats(ctx, pl, time.Duration(runStatsEvery)*time.Second)

	err = pl.Run(ctx, sensor, downstream)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrConnectionClosed) {
		return err
	}

	snap := pl.Stats().Snapshot()
	log.Info().
		Uint64("frames", snap.FramesReceived).
		Uint64("updates", snap.Updates).
		Uint64("transmissions", snap.Transmissions).
		Uint64("aborts", snap.Aborts).
		Msg("pipeline stopped")
	return nil
}

// logStats periodically logs a counters snapshot.
func logStats(ctx context.Context, pl *pipeline.Pipeline, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := pl.Stats().Snapshot()
			log.Info().
				Uint64("frames", snap.FramesReceived).
				Float64("frame_rate", snap.FrameRate).
				Uint64("updates", snap.Updates).
				Uint64("discards", snap.PartialDiscards).
				Uint64("transmissions", snap.Transmissions).
				Uint64("sentinels", snap.Sentinels).
				Int16("estimate", snap.LastEstimate).
				Msg("pipeline stats")
		}
	}
}
