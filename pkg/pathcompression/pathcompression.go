// --- ARCHITECTURAL OVERVIEW: Compression Dispatch ---
//
// A compression request is a list of inputs plus a format sequence parsed
// from the output name, innermost first: "out.tar.gz.zst" is [tar gzip zstd].
//
// The innermost format decides how data enters the chain:
//  1. Streaming codecs (gzip, bzip, lz4, lzma, snappy, zstd, brotli) copy the
//     single input through the chain.
//  2. Tar streams its entries into the chain.
//  3. Zip is built into memory and then copied into the chain. When further
//     codecs wrap the zip the user is warned and asked first.
//  4. Rar cannot be created; the request is aborted with a notice.
//  5. 7z is handed to an external archiver which writes the output itself.
//
// Every remaining format wraps the chain, outermost directly on the output.
// Compress returns committed=false when the user declined or the format
// cannot be produced. The caller must then discard the output.

// Package pathcompression drives a compression request through the encoder
// chain built by package pipeline.
package pathcompression

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/paulschiretz/pgl-press/pkg/archive"
	"github.com/paulschiretz/pgl-press/pkg/format"
	"github.com/paulschiretz/pgl-press/pkg/limiter"
	"github.com/paulschiretz/pgl-press/pkg/pathcompressionmetrics"
	"github.com/paulschiretz/pgl-press/pkg/plog"
	"github.com/paulschiretz/pgl-press/pkg/pool"
	"github.com/paulschiretz/pgl-press/pkg/question"
	"github.com/paulschiretz/pgl-press/pkg/sevenzip"
)

var (
	// ErrNoInput is returned when there is nothing to compress.
	ErrNoInput = errors.New("no input files")
	// ErrSevenZipWrapped is returned for sequences like [7z gzip]: the
	// external archiver writes the output itself, so nothing can wrap it.
	ErrSevenZipWrapped = errors.New("7z output cannot be wrapped by further codecs")
)

// progressInterval is how often metrics are logged while a compression runs.
const progressInterval = 2 * time.Second

// Confirmer asks the user whether to go ahead with an action on path.
type Confirmer interface {
	Continue(path string, policy question.Policy, action question.Action) (bool, error)
}

// SevenZipArchiver writes a 7z archive of files to outputPath.
type SevenZipArchiver interface {
	Compress(ctx context.Context, files []string, outputPath string, opts sevenzip.Options) error
}

type PathCompressor struct {
	ioBufferPool *pool.BufferPool
	bufferSize   int
	numWorkers   int
	confirmer    Confirmer
	sevenZip     SevenZipArchiver
	zipMemory    *limiter.Memory // nil: unlimited
}

// NewPathCompressor creates a new PathCompressor with the given configuration.
// numWorkers bounds the parallel block encoders; 0 selects GOMAXPROCS.
func NewPathCompressor(bufferSizeKB int, numWorkers int, confirmer Confirmer, sevenZip SevenZipArchiver) *PathCompressor {
	bufferSize := bufferSizeKB * 1024
	if bufferSize <= 0 {
		bufferSize = archive.DefaultBufferSize
	}
	return &PathCompressor{
		ioBufferPool: pool.NewBufferPool(int64(bufferSize)),
		bufferSize:   bufferSize,
		numWorkers:   numWorkers,
		confirmer:    confirmer,
		sevenZip:     sevenZip,
	}
}

// LimitZipMemory bounds the memory all in-memory zip builds of this
// compressor may hold at once. A limit of 0 or less removes the bound.
// It must be called before the compressor is used.
func (c *PathCompressor) LimitZipMemory(limitBytes int64) {
	if limitBytes <= 0 {
		c.zipMemory = nil
		return
	}
	c.zipMemory = limiter.NewMemory(limitBytes)
}

// Compress writes files to output in the given formats. outputPath names the
// file behind output; archives skip it if it lies inside an input, and the
// 7z archiver writes to it directly. output is flushed but never closed.
//
// committed is true when output holds a complete result. It is false when
// the request was aborted on purpose (declined confirmation, rar). An error
// always comes with committed=false.
func (c *PathCompressor) Compress(ctx context.Context, files []string, formats []format.Format, output io.Writer, outputPath string, p *Plan) (committed bool, retErr error) {
	// Check for cancellation
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	first, rest, err := format.Split(formats)
	if err != nil {
		return false, fmt.Errorf("invalid format sequence: %w", err)
	}
	if len(files) == 0 {
		return false, ErrNoInput
	}
	if first == format.SevenZip && len(rest) > 0 {
		return false, fmt.Errorf("%w: %v", ErrSevenZipWrapped, formats)
	}

	var m pathcompressionmetrics.Metrics
	if p.Metrics {
		m = &pathcompressionmetrics.CompressionMetrics{}
		m.StartProgress("Compression progress", progressInterval)
		defer func() {
			m.StopProgress()
			m.LogSummary("Compression finished")
		}()
	} else {
		// Use the No-op implementation if metrics are disabled.
		m = &pathcompressionmetrics.NoopMetrics{}
	}

	t := &task{
		PathCompressor: c,
		ctx:            ctx,
		files:          files,
		first:          first,
		rest:           rest,
		output:         output,
		outputPath:     outputPath,
		plan:           p,
		metrics:        m,
	}

	committed, err = t.execute()
	switch {
	case err != nil:
		return false, err
	case committed:
		m.AddCommitted(1)
	default:
		m.AddAborted(1)
	}
	if !p.Quiet {
		plog.Debug("Compression dispatch done", "output", outputPath, "formats", formats, "committed", committed)
	}
	return committed, nil
}
