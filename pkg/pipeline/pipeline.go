// Package pipeline chains streaming encoders into a single writable sink.
//
// A Sink starts as a buffered writer over a base writer (normally the output
// file). Each Wrap puts a new encoder on top, so bytes written to the sink
// pass through the most recently added encoder first. Close finalizes every
// encoder from the top of the chain down to the base, then flushes the
// buffer. The base writer is never closed; it belongs to the caller.
package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/paulschiretz/pgl-press/pkg/codec"
	"github.com/paulschiretz/pgl-press/pkg/format"
	"github.com/paulschiretz/pgl-press/pkg/plog"
)

// ErrClosed is returned when writing to a finalized sink.
var ErrClosed = errors.New("pipeline: write to closed sink")

// DefaultBufferSize is used by New when bufSize is not positive.
const DefaultBufferSize = 256 * 1024

type layer struct {
	format format.Format
	wc     io.WriteCloser
}

// Sink is the writable end of an encoder chain.
type Sink struct {
	buf    *bufio.Writer
	top    io.Writer
	layers []layer // bottom (closest to base) first
	closed bool
}

// New returns an unwrapped sink that buffers writes into base.
func New(base io.Writer, bufSize int) *Sink {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	buf := bufio.NewWriterSize(base, bufSize)
	return &Sink{buf: buf, top: buf}
}

// Build returns a sink over base with every format in rest applied.
// rest is ordered innermost to outermost, as returned by format.Split, so
// it is traversed in reverse: the outermost codec sits directly on the base.
func Build(base io.Writer, rest []format.Format, l codec.Level, opts codec.Options, bufSize int) (*Sink, error) {
	s := New(base, bufSize)
	for i := len(rest) - 1; i >= 0; i-- {
		if err := s.Wrap(rest[i], l, opts); err != nil {
			// Finalize what was built so encoder goroutines are released.
			return nil, errors.Join(err, s.Close())
		}
	}
	return s, nil
}

// Wrap puts the encoder for f on top of the chain.
func (s *Sink) Wrap(f format.Format, l codec.Level, opts codec.Options) error {
	if s.closed {
		return ErrClosed
	}
	wc, err := codec.NewWriter(f, s.top, l, opts)
	if err != nil {
		return fmt.Errorf("failed to wrap sink with %s: %w", f, err)
	}
	plog.Debug("WRAP", "format", f, "level", codec.Effective(f, l), "depth", len(s.layers)+1)
	s.layers = append(s.layers, layer{format: f, wc: wc})
	s.top = wc
	return nil
}

// Write writes p into the top of the chain.
func (s *Sink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return s.top.Write(p)
}

// Depth returns the number of encoder layers.
func (s *Sink) Depth() int {
	return len(s.layers)
}

// Formats returns the wrapped formats from outermost (closest to the base)
// to innermost.
func (s *Sink) Formats() []format.Format {
	out := make([]format.Format, len(s.layers))
	for i, l := range s.layers {
		out[i] = l.format
	}
	return out
}

// Flush pushes pending data through every encoder that supports flushing,
// top down, and then flushes the buffer. The stream stays open; encoders
// without a Flush method (bzip2, xz) keep what they hold until Close.
func (s *Sink) Flush() error {
	if s.closed {
		return ErrClosed
	}
	for i := len(s.layers) - 1; i >= 0; i-- {
		f, ok := s.layers[i].wc.(interface{ Flush() error })
		if !ok {
			continue
		}
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush %s layer: %w", s.layers[i].format, err)
		}
	}
	return s.buf.Flush()
}

// Close finalizes the chain: every encoder is closed from the top down so
// each one's trailer is written into the layer below before that layer is
// itself closed, then the buffer is flushed to the base. All layers are
// closed even if one fails; the errors are joined. Close is idempotent.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.layers) - 1; i >= 0; i-- {
		if err := s.layers[i].wc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to finalize %s layer: %w", s.layers[i].format, err))
		}
	}
	if err := s.buf.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush sink: %w", err))
	}
	return errors.Join(errs...)
}
