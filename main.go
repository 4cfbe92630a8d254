// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Lumen - Remote Display Client
//
// A CLI tool for mirroring, recording and diagnosing the remote display
// stream of an M8 music workstation.

package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/Thermoquad/lumen/cmd"
)

func main() {
	// MIDI is optional; serial and WebSocket work without a MIDI backend
	if drv, err := rtmididrv.New(); err == nil {
		cmd.SetMIDIDriver(drv)
		defer drv.Close()
	} else {
		log.Debug().Err(err).Msg("MIDI backend unavailable")
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
