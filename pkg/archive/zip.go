package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/paulschiretz/pgl-press/pkg/codec"
)

// deflateRange is the level domain of zip's deflate method.
var deflateRange = codec.Range{Min: flate.NoCompression, Max: flate.BestCompression, Default: 6}

// Wrapper to return flate writer to pool on close
type pooledFlateWriter struct {
	*flate.Writer
	pool *sync.Pool
}

func (w *pooledFlateWriter) Close() error {
	err := w.Writer.Close()
	w.pool.Put(w.Writer)
	return err
}

// BuildZip writes a zip archive of files into w. The central directory is
// written before BuildZip returns; w is neither flushed nor closed.
// outputPath, if it lies inside one of the inputs, is left out.
func BuildZip(ctx context.Context, files []string, outputPath string, w io.Writer, opts Options) (retErr error) {
	o := opts.withDefaults()
	lvl := deflateRange.Resolve(o.Level)

	flatePool := &sync.Pool{
		New: func() any {
			// The level is within [0,9], so NewWriter cannot fail.
			fw, _ := flate.NewWriter(io.Discard, lvl)
			return fw
		},
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		fw := flatePool.Get().(*flate.Writer)
		fw.Reset(out)
		return &pooledFlateWriter{Writer: fw, pool: flatePool}, nil
	})

	// Robust cleanup
	defer func() {
		if err := zw.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("zip writer close failed: %w", err)
		}
	}()

	return walk(ctx, files, outputPath, o, func(e entry) error {
		return writeZipEntry(zw, e, o)
	})
}

func writeZipEntry(zw *zip.Writer, e entry, opts Options) error {
	mode := e.info.Mode()

	header, err := zip.FileInfoHeader(e.info)
	if err != nil {
		return fmt.Errorf("failed to create zip header for %s: %w", e.name, err)
	}
	header.Name = e.name

	switch {
	case mode.IsDir():
		header.Name += "/"
		header.Method = zip.Store
		header.UncompressedSize64 = 0
		if _, err := zw.CreateHeader(header); err != nil {
			return fmt.Errorf("failed to write zip header for %s: %w", e.name, err)
		}
		return nil

	case mode&os.ModeSymlink != 0:
		target, err := os.Readlink(e.absPath)
		if err != nil {
			return fmt.Errorf("failed to read link %s: %w", e.absPath, err)
		}
		opts.Metrics.AddOriginalBytes(int64(len(target)))
		// Symlinks are stored, not compressed.
		header.Method = zip.Store
		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to write zip header for %s: %w", e.name, err)
		}
		_, err = io.WriteString(w, target)
		return err

	default:
		header.Method = zip.Deflate
		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to write zip header for %s: %w", e.name, err)
		}
		return copyEntry(w, e, opts)
	}
}
