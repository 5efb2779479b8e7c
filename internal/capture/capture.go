// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records protocol traffic to a CBOR sequence file and
// replays it through the decoder.
//
// A capture is one Header item followed by any number of Frame items.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/Thermoquad/mfstat/pkg/mobiflight"
)

// Magic identifies a capture file
const Magic = "mfstat-capture"

// FormatVersion is bumped on incompatible layout changes
const FormatVersion = 1

// ErrNotCapture is returned when the stream does not start with a capture header
var ErrNotCapture = errors.New("not an mfstat capture")

// Header opens every capture
type Header struct {
	Magic      string    `cbor:"1,keyasint"`
	Version    int       `cbor:"2,keyasint"`
	Session    uuid.UUID `cbor:"3,keyasint"`
	Started    time.Time `cbor:"4,keyasint"`
	Connection string    `cbor:"5,keyasint,omitempty"`
}

// Frame is one message as it crossed the link, without its separator
type Frame struct {
	Timestamp time.Time            `cbor:"1,keyasint"`
	Direction mobiflight.Direction `cbor:"2,keyasint"`
	Raw       string               `cbor:"3,keyasint"`
}

var encMode = func() cbor.EncMode {
	mode, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// Recorder appends frames to a capture. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	enc     *cbor.Encoder
	closer  io.Closer
	header  Header
	frames  int
	closed  bool
	nowFunc func() time.Time
}

// NewRecorder writes a fresh header to w
func NewRecorder(w io.Writer, connection string) (*Recorder, error) {
	r := &Recorder{
		enc:     encMode.NewEncoder(w),
		nowFunc: time.Now,
	}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}

	r.header = Header{
		Magic:      Magic,
		Version:    FormatVersion,
		Session:    uuid.New(),
		Started:    r.nowFunc(),
		Connection: connection,
	}
	if err := r.enc.Encode(r.header); err != nil {
		return nil, fmt.Errorf("write capture header: %w", err)
	}
	return r, nil
}

// Create opens path for writing, truncating it, and starts a capture
func Create(path, connection string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture: %w", err)
	}
	r, err := NewRecorder(f, connection)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// Header returns the capture header
func (r *Recorder) Header() Header {
	return r.header
}

// Frames returns the number of frames recorded so far
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Record appends a frame stamped with the current time
func (r *Recorder) Record(dir mobiflight.Direction, raw string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return os.ErrClosed
	}
	frame := Frame{Timestamp: r.nowFunc(), Direction: dir, Raw: raw}
	if err := r.enc.Encode(frame); err != nil {
		return fmt.Errorf("write capture frame: %w", err)
	}
	r.frames++
	return nil
}

// Close closes the underlying writer if it is a Closer. It is safe to call
// more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Reader reads frames from a capture
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and checks the capture header
func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(r)

	var header Header
	if err := dec.Decode(&header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNotCapture
		}
		return nil, fmt.Errorf("%w: %v", ErrNotCapture, err)
	}
	if header.Magic != Magic {
		return nil, ErrNotCapture
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported capture version %d", header.Version)
	}
	return &Reader{dec: dec, header: header}, nil
}

// Header returns the capture header
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next frame, or io.EOF at the end of the capture
func (r *Reader) Next() (Frame, error) {
	var frame Frame
	if err := r.dec.Decode(&frame); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("read capture frame: %w", err)
	}
	return frame, nil
}
