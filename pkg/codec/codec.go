// Package codec builds streaming encoders for the non-archive formats.
package codec

import (
	"fmt"
	"io"
	"runtime"

	"github.com/andybalholm/brotli"
	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/paulschiretz/pgl-press/pkg/format"
)

// defaultBlockSize is the pgzip block size when Options.BlockSize is unset.
const defaultBlockSize = 1 << 20

// Options tunes the parallel encoders. Zero values select defaults.
type Options struct {
	// Concurrency is the number of blocks compressed in parallel by gzip,
	// snappy, lz4 and zstd. Defaults to GOMAXPROCS.
	Concurrency int
	// BlockSize is the gzip block size in bytes.
	BlockSize int
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) blockSize() int {
	if o.BlockSize > 0 {
		return o.BlockSize
	}
	return defaultBlockSize
}

// xzDictCaps mirrors the dictionary sizes of the xz presets 0..9.
var xzDictCaps = [10]int{
	256 << 10,
	1 << 20,
	2 << 20,
	4 << 20,
	4 << 20,
	8 << 20,
	8 << 20,
	16 << 20,
	32 << 20,
	64 << 20,
}

// NewWriter wraps w with the encoder for f at the clamped level. Closing the
// returned writer finalizes the stream but never closes w.
//
// f must be a streaming codec. Archive formats are rejected by
// format.Validate before any pipeline is built, so reaching one here is a
// programming error and panics.
func NewWriter(f format.Format, w io.Writer, l Level, opts Options) (io.WriteCloser, error) {
	level := Effective(f, l)

	switch f {
	case format.Gzip:
		gw, err := pgzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		if err := gw.SetConcurrency(opts.blockSize(), opts.concurrency()); err != nil {
			return nil, fmt.Errorf("failed to set gzip concurrency: %w", err)
		}
		return gw, nil

	case format.Bzip:
		bw, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: level})
		if err != nil {
			return nil, fmt.Errorf("failed to create bzip2 writer: %w", err)
		}
		return bw, nil

	case format.Lz4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.ConcurrencyOption(opts.concurrency())); err != nil {
			return nil, fmt.Errorf("failed to configure lz4 writer: %w", err)
		}
		return lw, nil

	case format.Lzma:
		xw, err := xz.WriterConfig{DictCap: xzDictCaps[level]}.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return xw, nil

	case format.Snappy:
		s2opts := []s2.WriterOption{
			s2.WriterSnappyCompat(),
			s2.WriterConcurrency(opts.concurrency()),
		}
		switch {
		case level >= 7:
			s2opts = append(s2opts, s2.WriterBestCompression())
		case level >= 4:
			s2opts = append(s2opts, s2.WriterBetterCompression())
		}
		return &snappyWriter{sw: s2.NewWriter(w, s2opts...), dst: w}, nil

	case format.Zstd:
		zw, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			zstd.WithEncoderConcurrency(opts.concurrency()),
			zstd.WithZeroFrames(true),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zw, nil

	case format.Brotli:
		return brotli.NewWriterLevel(w, level), nil

	case format.Tar, format.Zip, format.Rar, format.SevenZip:
		panic(fmt.Sprintf("codec: unreachable: archive format %s used as a wrapping layer", f))
	}
	return nil, fmt.Errorf("unsupported format: %s", f)
}

// snappyStreamIdentifier opens every framed snappy stream.
var snappyStreamIdentifier = []byte("\xff\x06\x00\x00sNaPpY")

// snappyWriter makes an empty input still produce a valid framed stream.
// s2 emits the stream identifier lazily with the first chunk, so nothing at
// all would be written otherwise.
type snappyWriter struct {
	sw      *s2.Writer
	dst     io.Writer
	written bool
}

func (w *snappyWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.written = true
	}
	return w.sw.Write(p)
}

func (w *snappyWriter) Flush() error {
	return w.sw.Flush()
}

func (w *snappyWriter) Close() error {
	if err := w.sw.Close(); err != nil {
		return err
	}
	if w.written {
		return nil
	}
	w.written = true
	if _, err := w.dst.Write(snappyStreamIdentifier); err != nil {
		return fmt.Errorf("failed to write snappy stream identifier: %w", err)
	}
	return nil
}
