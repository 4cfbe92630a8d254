// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// passwordEnv holds the bridge password for non-interactive use
const passwordEnv = "LUMEN_PASSWORD"

const (
	defaultHandshakeTimeout = 10 * time.Second
	closeGracePeriod        = time.Second
)

// BridgeOptions configures a WebSocket bridge connection
type BridgeOptions struct {
	Username      string
	Password      string
	SkipSSLVerify bool
	Timeout       time.Duration // handshake timeout, 0 uses the default
}

// WebSocketConnection joins the bridge's binary messages into one byte
// stream. Message boundaries carry no meaning; SLIP framing does.
type WebSocketConnection struct {
	conn    *websocket.Conn
	current io.Reader
	skipped int

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed.Load() {
		return 0, ErrConnectionClosed
	}

	for {
		if w.current == nil {
			kind, r, err := w.conn.NextReader()
			if err != nil {
				w.closed.Store(true)
				return 0, err
			}
			if kind != websocket.BinaryMessage {
				w.skipped++
				log.Debug().Int("type", kind).Int("skipped", w.skipped).Msg("ignoring non-binary bridge message")
				continue
			}
			w.current = r
		}

		n, err := w.current.Read(p)
		switch {
		case err == io.EOF:
			w.current = nil
			if n > 0 {
				return n, nil
			}
		case err != nil:
			w.closed.Store(true)
			return n, err
		case n > 0:
			return n, nil
		}
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if w.closed.Load() {
		return 0, ErrConnectionClosed
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, fmt.Errorf("bridge write failed: %w", err)
	}
	return len(p), nil
}

// Close sends a normal closure frame and closes the socket, which also
// unblocks a pending Read
func (w *WebSocketConnection) Close() error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod)); err != nil {
			log.Debug().Err(err).Msg("bridge close frame not sent")
		}
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}

// bridgeHeaders builds the handshake headers, with Basic auth when both
// credentials are set
func bridgeHeaders(username, password string) http.Header {
	headers := http.Header{}
	if username == "" || password == "" {
		return headers
	}
	req := http.Request{Header: headers}
	req.SetBasicAuth(username, password)
	return headers
}

// OpenWebSocketConnection dials a ws:// or wss:// bridge
func OpenWebSocketConnection(ctx context.Context, rawURL string, opts BridgeOptions) (*WebSocketConnection, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported URL scheme %q (use ws:// or wss://)", u.Scheme)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	if u.Scheme == "wss" {
		if opts.SkipSSLVerify {
			log.Warn().Str("host", u.Host).Msg("TLS certificate verification disabled")
		}
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: opts.SkipSSLVerify}
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), bridgeHeaders(opts.Username, opts.Password))
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("bridge handshake failed (HTTP %d %s): %w",
				resp.StatusCode, http.StatusText(resp.StatusCode), err)
		}
		return nil, fmt.Errorf("bridge handshake failed: %w", err)
	}
	log.Debug().Str("url", u.Redacted()).Msg("bridge connected")

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword returns the bridge password from LUMEN_PASSWORD, or prompts for it
func GetPassword() (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	return promptPassword(os.Stdin, os.Stderr)
}

// promptPassword reads a password without echo from a terminal, or a plain
// line from anything else
func promptPassword(in *os.File, out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")
	defer fmt.Fprintln(out)

	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
