// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Thermoquad/lumen/pkg/remote"
)

// drainInterval is how often the threaded commands drain the message queue
const drainInterval = 10 // milliseconds

// openSession opens the configured transport and wraps it in a session.
// The session is not started.
func openSession(sink remote.Sink) (*remote.Client, string, error) {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return nil, "", err
	}
	client := remote.NewClient(conn, sink, cfg.SessionConfig(), log.Logger)
	return client, connInfo, nil
}

// interrupted returns a channel closed on SIGINT or SIGTERM
func interrupted() <-chan os.Signal {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	return sig
}

// isClosed reports whether err means the transport went away for good
func isClosed(err error) bool {
	return errors.Is(err, ErrConnectionClosed)
}
