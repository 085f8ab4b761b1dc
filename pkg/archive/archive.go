// Package archive serializes a set of files and directories as tar or zip
// into an arbitrary writer.
//
// Each input is stored under its own base name: archiving "src/app" yields
// entries "app/", "app/main.go" and so on. Entries are written in input
// order and, inside a directory, in lexical order, so the same inputs always
// produce the same entry sequence.
package archive

import (
	"fmt"
	"io"
	"os"

	"github.com/paulschiretz/pgl-press/pkg/codec"
	"github.com/paulschiretz/pgl-press/pkg/pathcompressionmetrics"
	"github.com/paulschiretz/pgl-press/pkg/pool"
)

// DefaultBufferSize is the copy buffer size used when Options.Buffers is nil.
const DefaultBufferSize = 256 * 1024

// Visibility decides which walked entries are archived. Inputs named
// explicitly on the command line are always archived.
type Visibility struct {
	// ReadHidden includes dot-prefixed files and directories.
	ReadHidden bool
	// Exclude holds patterns matched against the path below each input:
	// "*.log", "node_modules", "build/", "docs/*.tmp".
	Exclude []string
}

// Options configures an archive build.
type Options struct {
	Visibility Visibility
	// Quiet suppresses the per-entry ADD lines.
	Quiet bool
	// Level is the zip deflate level. It is clamped into [0,9].
	Level   codec.Level
	Buffers *pool.BufferPool
	Metrics pathcompressionmetrics.Metrics
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Buffers == nil {
		out.Buffers = pool.NewBufferPool(DefaultBufferSize)
	}
	if out.Metrics == nil {
		out.Metrics = &pathcompressionmetrics.NoopMetrics{}
	}
	return out
}

// metricReader wraps an io.Reader and counts the bytes read from inputs.
type metricReader struct {
	r       io.Reader
	metrics pathcompressionmetrics.Metrics
}

func (mr *metricReader) Read(p []byte) (n int, err error) {
	n, err = mr.r.Read(p)
	if n > 0 {
		mr.metrics.AddOriginalBytes(int64(n))
	}
	return
}

// secureFileOpen opens a walked file and checks it is still the file that was
// stat'ed. Archive headers carry the size up front, so a file that was
// swapped or resized in between would corrupt the archive.
func secureFileOpen(absFilePath string, expected os.FileInfo) (*os.File, error) {
	f, err := os.Open(absFilePath)
	if err != nil {
		return nil, err
	}

	openedInfo, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat opened file: %w", err)
	}

	if !os.SameFile(expected, openedInfo) {
		f.Close()
		return nil, fmt.Errorf("file changed during compression (TOCTOU): %s", absFilePath)
	}
	if openedInfo.Size() != expected.Size() {
		f.Close()
		return nil, fmt.Errorf("file size changed during compression: %s", absFilePath)
	}

	return f, nil
}

// copyEntry streams one walked file into w.
func copyEntry(w io.Writer, e entry, opts Options) error {
	f, err := secureFileOpen(e.absPath, e.info)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", e.absPath, err)
	}
	defer f.Close()

	bufPtr := opts.Buffers.Get()
	defer opts.Buffers.Put(bufPtr)

	n, err := io.CopyBuffer(w, &metricReader{r: f, metrics: opts.Metrics}, *bufPtr)
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", e.absPath, err)
	}
	if n != e.info.Size() {
		return fmt.Errorf("short read on %s: copied %d of %d bytes", e.absPath, n, e.info.Size())
	}
	return nil
}
