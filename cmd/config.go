// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package cmd

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// fileConfig mirrors the persistent flags. Values from the file fill in
// whatever the command line left at its default; an explicit flag always
// wins.
type fileConfig struct {
	Port        string `toml:"port"`
	Baud        int    `toml:"baud"`
	URL         string `toml:"url"`
	Username    string `toml:"username"`
	NoSSLVerify bool   `toml:"no_ssl_verify"`
	LogLevel    string `toml:"log_level"`

	Strategy         string `toml:"strategy"`
	InitialP         uint64 `toml:"initial_p"`
	ProcessNoise     uint64 `toml:"process_noise"`
	MeasurementNoise uint64 `toml:"measurement_noise"`
}

func applyConfigFile(cmd *cobra.Command) error {
	if configPath == "" {
		return nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(configPath, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()

	if meta.IsDefined("port") && !flags.Changed("port") {
		portName = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") && !flags.Changed("baud") {
		baudRate = raw.Baud
	}
	if meta.IsDefined("url") && !flags.Changed("url") {
		wsURL = strings.TrimSpace(raw.URL)
	}
	if meta.IsDefined("username") && !flags.Changed("username") {
		wsUsername = strings.TrimSpace(raw.Username)
	}
	if meta.IsDefined("no_ssl_verify") && !flags.Changed("no-ssl-verify") {
		wsNoSSLVerify = raw.NoSSLVerify
	}
	if meta.IsDefined("log_level") && !flags.Changed("log-level") {
		logLevel = raw.LogLevel
		initLogger()
	}

	if meta.IsDefined("strategy") && !flags.Changed("strategy") {
		strategy = strings.TrimSpace(raw.Strategy)
	}
	if meta.IsDefined("initial_p") && !flags.Changed("initial-p") {
		initialP = raw.InitialP
	}
	if meta.IsDefined("process_noise") && !flags.Changed("process-noise") {
		processNoise = raw.ProcessNoise
	}
	if meta.IsDefined("measurement_noise") && !flags.Changed("measurement-noise") {
		measurementNoise = raw.MeasurementNoise
	}

	return nil
}
