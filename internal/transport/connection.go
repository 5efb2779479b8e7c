// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport opens serial and WebSocket links to a MobiFlight board
// and frames the byte stream into protocol messages.
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// EnvPassword holds the WebSocket basic-auth password
const EnvPassword = "MFSTAT_PASSWORD"

// Connection provides a common interface for reading/writing bytes from serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// ErrNoEndpoint is returned by Open when neither a port nor a URL is set
var ErrNoEndpoint = errors.New("either --port or --url must be specified")

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// WebSocketConnection exposes the payloads of a WebSocket bridge as a byte stream
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

// NewWebSocketConnection wraps an established WebSocket
func NewWebSocketConnection(conn *websocket.Conn) *WebSocketConnection {
	return &WebSocketConnection{conn: conn}
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, ErrConnectionClosed
			}
			return 0, err
		}

		// The bridge forwards the text protocol in text frames; some
		// bridges use binary frames for the same bytes.
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		if len(data) == 0 {
			continue
		}

		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return w.conn.Close()
}

// OpenSerial opens a serial port at 8N1
func OpenSerial(portName string, baudRate int) (*SerialConnection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	// Arduino boards reset when DTR toggles; hold it asserted.
	if err := port.SetDTR(true); err != nil {
		log.Debug().Err(err).Str("port", portName).Msg("failed to assert DTR")
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocket opens a WebSocket connection with optional HTTP Basic auth
func OpenWebSocket(ctx context.Context, wsURL, username, password string, skipSSLVerify bool) (*WebSocketConnection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return NewWebSocketConnection(conn), nil
}

// GetPassword retrieves the password from the environment or prompts on the terminal
func GetPassword() (string, error) {
	if pw := os.Getenv(EnvPassword); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal, read a line instead
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// Options selects and configures an endpoint
type Options struct {
	Port     string
	BaudRate int

	URL         string
	Username    string
	NoSSLVerify bool

	// Password overrides GetPassword when set
	Password func() (string, error)
}

// Open opens a WebSocket connection when URL is set, otherwise a serial
// port. The returned string describes the endpoint for display.
func Open(ctx context.Context, opts Options) (Connection, string, error) {
	if opts.URL != "" {
		password := ""
		if opts.Username != "" {
			getPassword := opts.Password
			if getPassword == nil {
				getPassword = GetPassword
			}
			var err error
			password, err = getPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocket(ctx, opts.URL, opts.Username, password, opts.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		log.Debug().Str("url", opts.URL).Msg("websocket connected")

		return conn, fmt.Sprintf("WebSocket: %s", opts.URL), nil
	}

	if opts.Port != "" {
		conn, err := OpenSerial(opts.Port, opts.BaudRate)
		if err != nil {
			return nil, "", err
		}
		log.Debug().Str("port", opts.Port).Int("baud", opts.BaudRate).Msg("serial port opened")

		return conn, fmt.Sprintf("Serial: %s @ %d baud", opts.Port, opts.BaudRate), nil
	}

	return nil, "", ErrNoEndpoint
}
