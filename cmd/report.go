// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package cmd

import (
	"fmt"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/kilnworks/icebridge/pkg/trace"
)

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report <trace-file>",
	Short: "Render a recorded trace as an HTML chart",
	Long: `Load a trace recorded by 'run --trace' or 'simulate --trace', print
error statistics, and render an interactive line chart of truth, measurement
and estimate over time.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "report.html", "Output HTML file")
}

func runReport(cmd *cobra.Command, args []string) error {
	r, err := trace.OpenReader(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	records, err := r.ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("trace %s is empty", args[0])
	}

	printTraceStats(records)

	if err := renderChart(records, reportOut); err != nil {
		return err
	}
	fmt.Printf("Chart written to %s\n", reportOut)
	return nil
}

// printTraceStats prints estimate-vs-measurement and, when the trace carries
// true values (simulated runs), estimate-vs-truth statistics.
func printTraceStats(records []trace.Record) {
	innovations := make([]float64, len(records))
	errs := make([]float64, 0, len(records))
	sumSq := 0.0
	hasTruth := false

	for i, r := range records {
		innovations[i] = float64(r.Measurement) - float64(r.Estimate)
		if r.Truth != 0 {
			hasTruth = true
		}
	}
	if hasTruth {
		for _, r := range records {
			e := float64(r.Estimate) - r.Truth
			errs = append(errs, e)
			sumSq += e * e
		}
	}

	fmt.Printf("Trace Report\n")
	fmt.Printf("  Run:          %s\n", records[0].RunID)
	fmt.Printf("  Records:      %d\n", len(records))
	fmt.Printf("  Span:         %s\n", records[len(records)-1].Timestamp.Sub(records[0].Timestamp))
	fmt.Printf("  Innovation:   mean %.2f, sigma %.2f counts\n",
		stat.Mean(innovations, nil), stat.StdDev(innovations, nil))

	if hasTruth {
		fmt.Printf("  Truth error:  bias %.2f, sigma %.2f, RMSE %.2f counts\n",
			stat.Mean(errs, nil), stat.StdDev(errs, nil),
			math.Sqrt(sumSq/float64(len(errs))))
	}
	fmt.Println()
}

// renderChart writes an HTML line chart of the trace.
func renderChart(records []trace.Record, path string) error {
	xAxis := make([]string, len(records))
	truth := make([]opts.LineData, len(records))
	measurement := make([]opts.LineData, len(records))
	estimate := make([]opts.LineData, len(records))

	hasTruth := false
	for i, r := range records {
		xAxis[i] = r.Timestamp.Format("15:04:05.000")
		truth[i] = opts.LineData{Value: r.Truth}
		measurement[i] = opts.LineData{Value: r.Measurement}
		estimate[i] = opts.LineData{Value: r.Estimate}
		if r.Truth != 0 {
			hasTruth = true
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Icebridge Trace",
			Theme:     "dark",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Estimator Trace",
			Subtitle: fmt.Sprintf("run=%s records=%d", records[0].RunID, len(records)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	line.SetXAxis(xAxis)
	line.AddSeries("measurement", measurement,
		charts.WithLineChartOpts(opts.LineChart{Symbol: "none"}))
	line.AddSeries("estimate", estimate,
		charts.WithLineChartOpts(opts.LineChart{Symbol: "none", Smooth: opts.Bool(true)}))
	if hasTruth {
		line.AddSeries("truth", truth,
			charts.WithLineChartOpts(opts.LineChart{Symbol: "none"}))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := line.Render(f); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
