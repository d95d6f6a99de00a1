// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks
//
// Icebridge - bit-serial sensor pipeline bridge
//
// Receives measurement frames from a bit-serial sensor link, filters them
// through a fixed-point recursive estimator, and serves the estimates to a
// downstream consumer on demand.

package main

import (
	"os"

	"github.com/kilnworks/icebridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
