package pathcompression

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/paulschiretz/pgl-press/pkg/archive"
	"github.com/paulschiretz/pgl-press/pkg/codec"
	"github.com/paulschiretz/pgl-press/pkg/format"
	"github.com/paulschiretz/pgl-press/pkg/limiter"
	"github.com/paulschiretz/pgl-press/pkg/pathcompressionmetrics"
	"github.com/paulschiretz/pgl-press/pkg/pipeline"
	"github.com/paulschiretz/pgl-press/pkg/plog"
	"github.com/paulschiretz/pgl-press/pkg/question"
	"github.com/paulschiretz/pgl-press/pkg/sevenzip"
)

// task holds the state of a single Compress call.
type task struct {
	*PathCompressor
	ctx        context.Context
	files      []string
	first      format.Format
	rest       []format.Format
	output     io.Writer
	outputPath string
	plan       *Plan
	metrics    pathcompressionmetrics.Metrics
}

// compressMetricWriter wraps an io.Writer and updates metrics on every write.
type compressMetricWriter struct {
	w       io.Writer
	metrics pathcompressionmetrics.Metrics
}

func (mw *compressMetricWriter) Write(p []byte) (n int, err error) {
	n, err = mw.w.Write(p)
	if n > 0 {
		mw.metrics.AddCompressedBytes(int64(n))
	}
	return
}

// compressMetricReader wraps an io.Reader, updates metrics on every read and
// stops once the context is canceled.
type compressMetricReader struct {
	ctx     context.Context
	r       io.Reader
	metrics pathcompressionmetrics.Metrics
}

func (mr *compressMetricReader) Read(p []byte) (n int, err error) {
	if err := mr.ctx.Err(); err != nil {
		return 0, err
	}
	n, err = mr.r.Read(p)
	if n > 0 {
		mr.metrics.AddOriginalBytes(int64(n))
	}
	return
}

func (t *task) execute() (bool, error) {
	switch t.first {
	case format.Rar:
		plog.Warn("Creating RAR archives is not supported, RAR is a proprietary format", "output", t.outputPath)
		return false, nil

	case format.SevenZip:
		err := t.sevenZip.Compress(t.ctx, t.files, t.outputPath, sevenzip.Options{
			Quiet:   t.plan.Quiet,
			Buffers: t.ioBufferPool,
			Metrics: t.metrics,
		})
		if err != nil {
			return false, fmt.Errorf("failed to create 7z archive: %w", err)
		}
		return true, nil

	case format.Zip:
		if len(t.rest) > 0 {
			plog.Warn("Zip archives need random access, the whole archive will be built in memory before it is compressed further",
				"output", t.outputPath, "wrapped_by", t.rest)
			ok, err := t.confirmer.Continue(t.outputPath, t.plan.QuestionPolicy, question.Compression)
			if err != nil {
				return false, fmt.Errorf("failed to confirm in-memory zip: %w", err)
			}
			if !ok {
				return false, nil
			}
		}
	}

	if err := t.writeThroughSink(); err != nil {
		return false, err
	}
	return true, nil
}

// writeThroughSink builds the encoder chain over the output and drives the
// innermost format into it. The chain is always finalized, innermost layer
// first, before this returns.
func (t *task) writeThroughSink() (retErr error) {
	opts := codec.Options{Concurrency: t.numWorkers}
	mw := &compressMetricWriter{w: t.output, metrics: t.metrics}

	sink, err := pipeline.Build(mw, t.rest, t.plan.Level, opts, t.bufferSize)
	if err != nil {
		return fmt.Errorf("failed to build compression pipeline: %w", err)
	}

	// Robust cleanup
	defer func() {
		if err := sink.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("failed to finalize output: %w", err)
		}
	}()

	archiveOpts := archive.Options{
		Visibility: t.plan.Visibility,
		Quiet:      t.plan.Quiet,
		Level:      t.plan.Level,
		Buffers:    t.ioBufferPool,
		Metrics:    t.metrics,
	}

	switch t.first {
	case format.Tar:
		if err := archive.BuildTar(t.ctx, t.files, t.outputPath, sink, archiveOpts); err != nil {
			return fmt.Errorf("failed to build tar archive: %w", err)
		}
		return nil

	case format.Zip:
		buf := limiter.NewBuffer(t.zipMemory)
		defer buf.Release()
		if err := archive.BuildZip(t.ctx, t.files, t.outputPath, buf, archiveOpts); err != nil {
			return fmt.Errorf("failed to build zip archive: %w", err)
		}
		if _, err := buf.WriteTo(sink); err != nil {
			return fmt.Errorf("failed to write zip archive: %w", err)
		}
		return nil

	default:
		if err := sink.Wrap(t.first, t.plan.Level, opts); err != nil {
			return err
		}
		return t.copyInput(sink)
	}
}

// copyInput streams the single input of a pure codec request into sink.
func (t *task) copyInput(sink io.Writer) error {
	if len(t.files) > 1 {
		plog.Warn("Only the first input is compressed by a stream codec", "format", t.first, "input", t.files[0], "ignored", len(t.files)-1)
	}
	src := t.files[0]

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open input %s: %w", src, err)
	}
	defer f.Close()

	if !t.plan.Quiet {
		plog.Notice("ADD", "entry", src)
	}

	bufPtr := t.ioBufferPool.Get()
	defer t.ioBufferPool.Put(bufPtr)

	mr := &compressMetricReader{ctx: t.ctx, r: f, metrics: t.metrics}
	if _, err := io.CopyBuffer(sink, mr, *bufPtr); err != nil {
		return fmt.Errorf("failed to compress %s: %w", src, err)
	}
	t.metrics.AddEntriesProcessed(1)
	return nil
}
