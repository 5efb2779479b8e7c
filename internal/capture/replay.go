// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/mfstat/pkg/mobiflight"
)

// ReadFrames sends every frame of r to out and closes out when done
func ReadFrames(ctx context.Context, r *Reader, out chan<- Frame) error {
	defer close(out)

	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		select {
		case out <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ReplayFunc receives each frame with its decoded message or decode error.
// Returning an error stops the replay.
type ReplayFunc func(frame Frame, msg mobiflight.Message, decodeErr error) error

// Replay decodes every frame of a capture, reading and decoding
// concurrently. fn is called from a single goroutine in capture order.
func Replay(ctx context.Context, r io.Reader, fn ReplayFunc) (Header, error) {
	reader, err := NewReader(r)
	if err != nil {
		return Header{}, err
	}

	frames := make(chan Frame, 100)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ReadFrames(ctx, reader, frames) })
	g.Go(func() error {
		for frame := range frames {
			msg, decodeErr := mobiflight.Deserialize(frame.Raw)
			if err := fn(frame, msg, decodeErr); err != nil {
				return err
			}
		}
		return nil
	})

	return reader.Header(), g.Wait()
}
