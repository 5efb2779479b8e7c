// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Thermoquad/mfstat/internal/capture"
	"github.com/Thermoquad/mfstat/internal/transport"
	"github.com/Thermoquad/mfstat/pkg/mobiflight"
)

// OpenConnection opens either a serial or WebSocket connection based on flags and config
func OpenConnection(ctx context.Context) (transport.Connection, string, error) {
	return transport.Open(ctx, transport.Options{
		Port:        settings.Port,
		BaudRate:    settings.BaudRate,
		URL:         settings.URL,
		Username:    settings.Username,
		NoSSLVerify: settings.NoSSLVerify,
	})
}

// received is one framed message read from the link
type received struct {
	at  time.Time
	raw string
	msg mobiflight.Message
	err error
}

// session couples a connection with its framer and optional capture
type session struct {
	conn     transport.Connection
	info     string
	framer   *transport.Framer
	recorder *capture.Recorder
	writeMu  sync.Mutex
}

// openSession opens the configured connection and starts the capture if requested
func openSession(ctx context.Context) (*session, error) {
	conn, info, err := OpenConnection(ctx)
	if err != nil {
		return nil, err
	}

	s := &session{
		conn:   conn,
		info:   info,
		framer: transport.NewFramer(conn),
	}

	if capturePath != "" {
		s.recorder, err = capture.Create(capturePath, info)
		if err != nil {
			conn.Close()
			return nil, err
		}
		log.Info().Str("path", capturePath).Str("session", s.recorder.Header().Session.String()).Msg("capturing traffic")
	}

	return s, nil
}

// send writes a message and records it. Safe for concurrent use.
func (s *session) send(m mobiflight.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := transport.WriteMessage(s.conn, m); err != nil {
		return err
	}
	s.record(mobiflight.SentOnly, m.Serialize())
	return nil
}

func (s *session) record(dir mobiflight.Direction, raw string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(dir, raw); err != nil {
		log.Warn().Err(err).Msg("capture write failed")
	}
}

// receive blocks for the next message. Decode failures are returned in
// received.err; the error return is only set when the stream ends.
func (s *session) receive() (received, error) {
	msg, raw, err := s.framer.ReadMessage()
	if err != nil && transport.IsStreamError(err) {
		return received{}, err
	}
	s.record(mobiflight.ReceivedOnly, raw)
	return received{at: time.Now(), raw: raw, msg: msg, err: err}, nil
}

// readLoop forwards received messages to out until the stream ends or ctx is done.
// The terminal stream error is sent on errc.
func (s *session) readLoop(ctx context.Context, out chan<- received, errc chan<- error) {
	for {
		r, err := s.receive()
		if err != nil {
			errc <- err
			return
		}
		select {
		case out <- r:
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) Close() error {
	var errs []error
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			errs = append(errs, err)
		} else {
			log.Info().Int("frames", s.recorder.Frames()).Msg("capture closed")
		}
	}
	if err := s.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// isClosed reports whether err means the peer went away
func isClosed(err error) bool {
	return errors.Is(err, transport.ErrConnectionClosed) || errors.Is(err, io.EOF)
}
