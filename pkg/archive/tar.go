package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
)

// BuildTar streams a tar archive of files into w. The archive is finished
// (trailer written) before BuildTar returns, but w is neither flushed nor
// closed. outputPath, if it lies inside one of the inputs, is left out.
func BuildTar(ctx context.Context, files []string, outputPath string, w io.Writer, opts Options) (retErr error) {
	o := opts.withDefaults()
	tw := tar.NewWriter(w)

	// Robust cleanup
	defer func() {
		if err := tw.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("tar writer close failed: %w", err)
		}
	}()

	return walk(ctx, files, outputPath, o, func(e entry) error {
		return writeTarEntry(tw, e, o)
	})
}

func writeTarEntry(tw *tar.Writer, e entry, opts Options) error {
	mode := e.info.Mode()

	var link string
	if mode&os.ModeSymlink != 0 {
		target, err := os.Readlink(e.absPath)
		if err != nil {
			return fmt.Errorf("failed to read link %s: %w", e.absPath, err)
		}
		link = target
		opts.Metrics.AddOriginalBytes(int64(len(target)))
	}

	header, err := tar.FileInfoHeader(e.info, link)
	if err != nil {
		return fmt.Errorf("failed to create tar header for %s: %w", e.name, err)
	}
	header.Name = e.name
	if mode.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", e.name, err)
	}
	if !mode.IsRegular() {
		return nil
	}
	return copyEntry(tw, e, opts)
}
