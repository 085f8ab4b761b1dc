package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/paulschiretz/pgl-press/pkg/plog"
	"github.com/paulschiretz/pgl-press/pkg/util"
)

// entry is one walked filesystem object scheduled for the archive.
type entry struct {
	absPath string
	// name is slash separated and relative to the parent of the input the
	// entry was found under. Directories carry no trailing slash.
	name string
	info os.FileInfo
}

// walker produces entries for a list of inputs while honoring Visibility.
type walker struct {
	files      []string
	output     os.FileInfo
	visibility Visibility
	exclusions exclusionSet
	opts       Options
}

func newWalker(files []string, outputPath string, opts Options) *walker {
	w := &walker{
		files:      files,
		visibility: opts.Visibility,
		exclusions: makeExclusionSet(opts.Visibility.Exclude),
		opts:       opts,
	}
	if outputPath != "" {
		// The output usually exists already (truncated by the caller). If
		// it does not, there is nothing to skip.
		if info, err := os.Stat(outputPath); err == nil {
			w.output = info
		}
	}
	return w
}

// walk feeds every entry to fn in a deterministic order. Walking runs one
// step ahead of fn in its own goroutine; fn itself is never called
// concurrently.
func walk(ctx context.Context, files []string, outputPath string, opts Options, fn func(entry) error) error {
	w := newWalker(files, outputPath, opts)

	g, ctx := errgroup.WithContext(ctx)
	entries := make(chan entry, 64)

	g.Go(func() error {
		defer close(entries)
		return w.produce(ctx, entries)
	})

	g.Go(func() error {
		for e := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !opts.Quiet {
				plog.Notice("ADD", "entry", e.name)
			}
			if err := fn(e); err != nil {
				return err
			}
			opts.Metrics.AddEntriesProcessed(1)
		}
		return nil
	})

	return g.Wait()
}

func (w *walker) produce(ctx context.Context, entries chan<- entry) error {
	for _, file := range w.files {
		absRoot, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("failed to resolve input %s: %w", file, err)
		}
		if _, err := os.Lstat(absRoot); err != nil {
			return fmt.Errorf("failed to stat input %s: %w", file, err)
		}
		parent := filepath.Dir(absRoot)

		walkErr := filepath.WalkDir(absRoot, func(absPath string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("failed to get file info for %s: %w", absPath, err)
			}

			if absPath != absRoot {
				rel, err := filepath.Rel(absRoot, absPath)
				if err != nil {
					return fmt.Errorf("failed to get relative path for %s: %w", absPath, err)
				}
				if w.skip(util.NormalizePath(rel), d) {
					w.opts.Metrics.AddEntriesSkipped(1)
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
			}

			if w.output != nil && os.SameFile(w.output, info) {
				plog.Debug("Skipping output file inside input", "path", absPath)
				return nil
			}

			mode := info.Mode()
			if !mode.IsRegular() && !mode.IsDir() && mode&os.ModeSymlink == 0 {
				plog.Warn("Skipping unsupported file type", "path", absPath, "mode", mode.String())
				w.opts.Metrics.AddEntriesSkipped(1)
				return nil
			}

			name, err := filepath.Rel(parent, absPath)
			if err != nil {
				return fmt.Errorf("failed to get entry name for %s: %w", absPath, err)
			}

			select {
			case entries <- entry{absPath: absPath, name: util.NormalizePath(name), info: info}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if walkErr != nil {
			return walkErr
		}
	}
	return nil
}

// skip applies the visibility policy to an entry below an input root.
func (w *walker) skip(relToRoot string, d fs.DirEntry) bool {
	if !w.visibility.ReadHidden && util.IsHidden(d.Name()) {
		return true
	}
	if !w.exclusions.empty() && w.exclusions.matches(relToRoot) {
		return true
	}
	return false
}
