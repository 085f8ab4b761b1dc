// Package sevenzip produces 7z archives through an external 7-Zip binary.
//
// There is no streaming 7z encoder, so the inputs are first staged into a
// private temporary directory which the archiver then packs as a whole.
// The temporary directory is removed on every exit path.
package sevenzip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-press/pkg/pathcompressionmetrics"
	"github.com/paulschiretz/pgl-press/pkg/plog"
	"github.com/paulschiretz/pgl-press/pkg/pool"
	"github.com/paulschiretz/pgl-press/pkg/util"
)

// DefaultBinary is looked up in PATH when no binary is configured.
const DefaultBinary = "7z"

const (
	stageDirName    = "stage"
	archiveFileName = "archive.7z"
)

// CommandContext matches exec.CommandContext and allows mocking os/exec in tests.
type CommandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd

// Options configures a single Compress call.
type Options struct {
	// Quiet suppresses per-file STAGE lines and the archiver's own output.
	Quiet   bool
	Buffers *pool.BufferPool
	Metrics pathcompressionmetrics.Metrics
}

// Archiver runs the external 7z binary.
type Archiver struct {
	binary         string
	commandContext CommandContext
}

// NewArchiver creates an Archiver. An empty binary selects DefaultBinary and
// a nil commandContext selects exec.CommandContext.
func NewArchiver(binary string, commandContext CommandContext) *Archiver {
	if binary == "" {
		binary = DefaultBinary
	}
	if commandContext == nil {
		commandContext = exec.CommandContext
	}
	return &Archiver{binary: binary, commandContext: commandContext}
}

// Binary returns the archiver executable.
func (a *Archiver) Binary() string {
	return a.binary
}

// Compress stages files and writes a 7z archive of them to outputPath,
// replacing whatever outputPath holds. Directories are staged under their
// path relative to the working directory, or under their base name when
// they live outside it. Files are staged by base name.
func (a *Archiver) Compress(ctx context.Context, files []string, outputPath string, opts Options) (retErr error) {
	if opts.Buffers == nil {
		opts.Buffers = pool.NewBufferPool(256 * 1024)
	}
	if opts.Metrics == nil {
		opts.Metrics = &pathcompressionmetrics.NoopMetrics{}
	}

	tmpRoot, err := os.MkdirTemp("", "pgl-press-7z-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpRoot); err != nil {
			plog.Warn("Failed to remove staging directory", "path", tmpRoot, "error", err)
		}
	}()

	stageDir := filepath.Join(tmpRoot, stageDirName)
	if err := os.Mkdir(stageDir, util.UserWritableDirPerms); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	s := &stager{root: stageDir, opts: opts}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.stage(file, cwd); err != nil {
			return err
		}
	}

	archivePath := filepath.Join(tmpRoot, archiveFileName)
	if err := a.run(ctx, stageDir, archivePath, opts.Quiet); err != nil {
		return err
	}

	return publish(archivePath, outputPath, opts)
}

func (a *Archiver) run(ctx context.Context, stageDir, archivePath string, quiet bool) error {
	// 7z expands "*" itself, including dot files, relative to cmd.Dir.
	args := []string{"a", "-t7z", "-y", "-snl"}
	if quiet {
		args = append(args, "-bso0", "-bsp0")
	}
	args = append(args, archivePath, "*")

	cmd := a.createCommand(ctx, args...)
	cmd.Dir = stageDir
	if !quiet {
		cmd.Stdout = os.Stdout
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	plog.Info("Running 7z archiver", "binary", a.binary, "dir", stageDir)
	if err := cmd.Run(); err != nil {
		// A canceled context kills the process, which surfaces as an exit error.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("7z archiver '%s' failed: %w: %s", a.binary, err, msg)
		}
		return fmt.Errorf("7z archiver '%s' failed: %w", a.binary, err)
	}
	return nil
}

// publish copies the finished archive over outputPath. The destination is
// truncated in place so a handle the caller holds stays valid.
func publish(archivePath, outputPath string, opts Options) (retErr error) {
	src, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open 7z archive: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, util.UserWritableFilePerms)
	if err != nil {
		return fmt.Errorf("failed to open output %s: %w", outputPath, err)
	}
	defer func() {
		if err := dst.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("failed to close output %s: %w", outputPath, err)
		}
	}()

	bufPtr := opts.Buffers.Get()
	defer opts.Buffers.Put(bufPtr)

	n, err := io.CopyBuffer(dst, src, *bufPtr)
	if err != nil {
		return fmt.Errorf("failed to write output %s: %w", outputPath, err)
	}
	opts.Metrics.AddCompressedBytes(n)
	return nil
}

// stager copies inputs into the staging directory.
type stager struct {
	root string
	opts Options
}

func (s *stager) stage(file, cwd string) error {
	abs, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("failed to resolve input %s: %w", file, err)
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return fmt.Errorf("failed to stat input %s: %w", file, err)
	}

	if !info.IsDir() {
		return s.copyEntry(abs, filepath.Join(s.root, filepath.Base(abs)), info)
	}

	rel, err := filepath.Rel(cwd, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(abs)
	}
	return s.copyTree(abs, filepath.Join(s.root, rel))
}

func (s *stager) copyTree(srcRoot, dstRoot string) error {
	return filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", path, err)
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info for %s: %w", path, err)
		}
		return s.copyEntry(path, filepath.Join(dstRoot, rel), info)
	})
}

func (s *stager) copyEntry(src, dst string, info os.FileInfo) error {
	if !s.opts.Quiet {
		plog.Notice("STAGE", "source", src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), util.UserWritableDirPerms); err != nil {
		return fmt.Errorf("failed to create staging directory for %s: %w", src, err)
	}

	mode := info.Mode()
	switch {
	case mode.IsDir():
		if err := os.MkdirAll(dst, util.WithUserWritePermission(mode.Perm())); err != nil {
			return fmt.Errorf("failed to stage directory %s: %w", src, err)
		}
		return nil
	case mode&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return fmt.Errorf("failed to read link %s: %w", src, err)
		}
		if err := os.Symlink(target, dst); err != nil {
			return fmt.Errorf("failed to stage link %s: %w", src, err)
		}
		s.opts.Metrics.AddFilesStaged(1)
		return nil
	case mode.IsRegular():
		if err := s.copyFile(src, dst, mode.Perm()); err != nil {
			return err
		}
		s.opts.Metrics.AddFilesStaged(1)
		return nil
	default:
		plog.Warn("Skipping unsupported file type", "path", src, "mode", mode.String())
		s.opts.Metrics.AddEntriesSkipped(1)
		return nil
	}
}

func (s *stager) copyFile(src, dst string, perm os.FileMode) (retErr error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, util.WithUserWritePermission(perm))
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("two inputs stage to the same name %s: %w", filepath.Base(dst), err)
		}
		return fmt.Errorf("failed to create staged file for %s: %w", src, err)
	}
	defer func() {
		if err := out.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("failed to close staged file for %s: %w", src, err)
		}
	}()

	bufPtr := s.opts.Buffers.Get()
	defer s.opts.Buffers.Put(bufPtr)

	n, err := io.CopyBuffer(out, in, *bufPtr)
	if err != nil {
		return fmt.Errorf("failed to stage %s: %w", src, err)
	}
	s.opts.Metrics.AddOriginalBytes(n)
	return nil
}
