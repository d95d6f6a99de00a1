// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Config file and logging
	configPath string
	logLevel   string

	// Estimator flags
	strategy         string
	initialP         uint64
	processNoise     uint64
	measurementNoise uint64
)

var rootCmd = &cobra.Command{
	Use:   "icebridge",
	Short: "Bit-serial sensor pipeline bridge",
	Long: `Icebridge - receives bit-serial measurement frames from a sensor link,
runs a fixed-point recursive estimator over them, and serves the filtered
estimates to a downstream consumer over a second bit-serial link.

Connection modes for the sensor link:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the ICEBRIDGE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "1.2.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogger()
		return applyConfigFile(cmd)
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device for the sensor link")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL for the sensor link (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (flags override file values)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")

	// Estimator flags
	rootCmd.PersistentFlags().StringVar(&strategy, "strategy", "fixed", "Estimator strategy (fixed or adaptive)")
	rootCmd.PersistentFlags().Uint64Var(&initialP, "initial-p", 1<<30, "Initial error covariance (adaptive only, Q2.30 counts)")
	rootCmd.PersistentFlags().Uint64Var(&processNoise, "process-noise", 1<<20, "Process noise variance Q (adaptive only, Q2.30 counts)")
	rootCmd.PersistentFlags().Uint64Var(&measurementNoise, "measurement-noise", 1<<30, "Measurement noise variance R (adaptive only, Q2.30 counts)")
}

// initLogger configures the global zerolog logger for console output.
func initLogger() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", "icebridge").Logger()

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = logger.Level(level)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
