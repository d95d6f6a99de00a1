// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/kilnworks/icebridge/pkg/bitlink"
	"github.com/kilnworks/icebridge/pkg/estimate"
	"github.com/kilnworks/icebridge/pkg/pipeline"
	"github.com/kilnworks/icebridge/pkg/qformat"
	"github.com/kilnworks/icebridge/pkg/stimulus"
	"github.com/kilnworks/icebridge/pkg/trace"
)

var (
	simWaveform     string
	simLevel        float64
	simAmplitude    float64
	simPeriod       int
	simNoise        float64
	simSeed         int64
	simFrames       int
	simTracePath    string
	simRequestEvery int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the pipeline against a synthetic signal",
	Long: `Drive the full pipeline offline with a generated waveform.

Frames are encoded exactly as the physical source would emit them (low byte
first), pushed through the receiver, estimator and transmitter, and the
estimates are checked back out through downstream request cycles. Known true
values make this the reference way to measure estimator error.

Record the run with --trace and render it afterwards with 'icebridge report'.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simWaveform, "waveform", stimulus.WaveConstant, "Waveform (constant, step, sine)")
	simulateCmd.Flags().Float64Var(&simLevel, "level", 8000, "Signal level in Q1.15 counts")
	simulateCmd.Flags().Float64Var(&simAmplitude, "amplitude", 4000, "Sine amplitude in counts")
	simulateCmd.Flags().IntVar(&simPeriod, "period", 200, "Frames per sine cycle / frames before step")
	simulateCmd.Flags().Float64Var(&simNoise, "noise", 500, "Gaussian measurement noise sigma, counts")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 1, "Noise generator seed")
	simulateCmd.Flags().IntVar(&simFrames, "frames", 1000, "Number of frames to run")
	simulateCmd.Flags().StringVar(&simTracePath, "trace", "", "Trace file for the run (.csv, .db)")
	simulateCmd.Flags().IntVar(&simRequestEvery, "request-every", 10, "Downstream request cycle every N frames (0 disables)")
}

// simDuplex joins the event pipe and reply pipe into the downstream
// io.ReadWriter the pipeline expects.
type simDuplex struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (d simDuplex) Read(p []byte) (int, error)  { return d.r.Read(p) }
func (d simDuplex) Write(p []byte) (int, error) { return d.w.Write(p) }

func runSimulate(cmd *cobra.Command, args []string) error {
	gen, err := stimulus.New(stimulus.Config{
		Waveform:   simWaveform,
		Level:      simLevel,
		Amplitude:  simAmplitude,
		Period:     simPeriod,
		NoiseSigma: simNoise,
		Seed:       simSeed,
	})
	if err != nil {
		return err
	}

	est, err := estimate.New(strategy, initialP, processNoise, measurementNoise)
	if err != nil {
		return err
	}

	var tw trace.Writer
	runID := ""
	if simTracePath != "" {
		tw, err = trace.OpenWriter(simTracePath)
		if err != nil {
			return err
		}
		defer tw.Close()
		runID = trace.NewRunID()
		log.Info().Str("trace", simTracePath).Str("run_id", runID).Msg("trace recording")
	}

	estimates := make(chan int16, 4)
	pl := pipeline.New(est, pipeline.Taps{
		OnEstimate: func(x int16) { estimates <- x },
	})

	inR, inW := io.Pipe()
	evR, evW := io.Pipe()
	repR, repW := io.Pipe()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- pl.Run(ctx, inR, simDuplex{r: evR, w: repW})
	}()

	truths := make([]float64, 0, simFrames)
	results := make([]float64, 0, simFrames)

	for i := 0; i < simFrames; i++ {
		truth, z := gen.Next()

		if _, err := inW.Write(stimulus.EncodeFrame(z)); err != nil {
			return fmt.Errorf("frame write: %w", err)
		}
		if _, err := inW.Write(stimulus.EncodeIdle(2)); err != nil {
			return fmt.Errorf("idle write: %w", err)
		}

		var x int16
		select {
		case x = <-estimates:
		case <-time.After(time.Second):
			return fmt.Errorf("no validity pulse for frame %d", i)
		}

		truths = append(truths, truth)
		results = append(results, float64(x))

		if tw != nil {
			err := tw.Write(trace.Record{
				RunID:       runID,
				Timestamp:   time.Now(),
				Truth:       truth,
				Measurement: z,
				Estimate:    x,
			})
			if err != nil {
				return fmt.Errorf("trace write: %w", err)
			}
		}

		if simRequestEvery > 0 && (i+1)%simRequestEvery == 0 {
			word, err := simRequestWord(evW, repR)
			if err != nil {
				return fmt.Errorf("request cycle at frame %d: %w", i, err)
			}
			if word != bitlink.Sentinel && int16(word) != x {
				log.Warn().Int("frame", i).Uint16("word", word).Int16("estimate", x).Msg("transmitted word lags estimate")
			}
		}
	}

	cancel()
	inW.Close()
	evW.Close()
	repR.Close()
	<-done

	snap := pl.Stats().Snapshot()
	fmt.Print(snap.String())
	fmt.Println(summarize(truths, results))
	if a, ok := est.(*estimate.Adaptive); ok {
		fmt.Printf("Adaptive State\n  Covariance: %.6f\n  Gain:       %.6f\n",
			qformat.CovToFloat(a.Covariance()),
			float64(a.Gain())/float64(qformat.GainOne))
	}
	return nil
}

// simRequestWord runs one downstream request cycle: assert, sixteen clock
// pulses, deassert, returning the word assembled from the reply bytes.
func simRequestWord(events *io.PipeWriter, replies *io.PipeReader) (uint16, error) {
	batch := make([]byte, 0, bitlink.WordBits+1)
	batch = append(batch, bitlink.EncodeTxEvent(bitlink.TxEvent{Requested: true}))
	for i := 0; i < bitlink.WordBits; i++ {
		batch = append(batch, bitlink.EncodeTxEvent(bitlink.TxEvent{Requested: true, Clock: true}))
	}
	if _, err := events.Write(batch); err != nil {
		return 0, err
	}

	buf := make([]byte, bitlink.WordBits)
	if _, err := io.ReadFull(replies, buf); err != nil {
		return 0, err
	}
	if _, err := events.Write([]byte{bitlink.EncodeTxEvent(bitlink.TxEvent{Requested: false})}); err != nil {
		return 0, err
	}

	var w uint16
	for _, b := range buf {
		w <<= 1
		if bitlink.DecodeReply(b) {
			w |= 1
		}
	}
	return w, nil
}

// summarize reports estimator error against the known true signal.
func summarize(truths, estimates []float64) string {
	if len(truths) == 0 {
		return "no frames"
	}

	errs := make([]float64, len(truths))
	sumSq := 0.0
	for i := range truths {
		errs[i] = estimates[i] - truths[i]
		sumSq += errs[i] * errs[i]
	}

	mean := stat.Mean(errs, nil)
	sigma := stat.StdDev(errs, nil)
	rmse := math.Sqrt(sumSq / float64(len(errs)))

	return fmt.Sprintf(
		"Estimator Error\n"+
			"  Frames:  %d\n"+
			"  Bias:    %.2f counts\n"+
			"  Sigma:   %.2f counts\n"+
			"  RMSE:    %.2f counts\n",
		len(errs), mean, sigma, rmse,
	)
}
