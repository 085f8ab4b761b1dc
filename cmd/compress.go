package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/paulschiretz/pgl-press/pkg/archive"
	"github.com/paulschiretz/pgl-press/pkg/buildinfo"
	"github.com/paulschiretz/pgl-press/pkg/config"
	"github.com/paulschiretz/pgl-press/pkg/format"
	"github.com/paulschiretz/pgl-press/pkg/hints"
	"github.com/paulschiretz/pgl-press/pkg/pathcompression"
	"github.com/paulschiretz/pgl-press/pkg/plog"
	"github.com/paulschiretz/pgl-press/pkg/question"
	"github.com/paulschiretz/pgl-press/pkg/sevenzip"
	"github.com/paulschiretz/pgl-press/pkg/util"
)

// ErrOutputIsInput is returned when the output path names one of the inputs.
var ErrOutputIsInput = errors.New("output cannot be one of the inputs")

// asker is the question collaborator for prompts. Tests replace it.
var asker = func() *question.Asker { return question.NewTerminal() }

// newSevenZip builds the external 7z archiver. Tests replace it.
var newSevenZip = func(binary string) pathcompression.SevenZipArchiver {
	return sevenzip.NewArchiver(binary, nil)
}

// RunCompress handles the 'compress' command. args holds the inputs followed
// by the output path.
func RunCompress(ctx context.Context, flagMap map[string]any, args []string) (retErr error) {
	if len(args) < 2 {
		return fmt.Errorf("compress needs at least one input and an output")
	}
	inputs := args[:len(args)-1]
	outputPath := args[len(args)-1]

	runConfig, err := loadRunConfig(flagMap)
	if err != nil {
		return err
	}
	if !runConfig.Runtime.Quiet {
		runConfig.LogSummary()
	}

	formats, err := format.FromPath(outputPath)
	if err != nil {
		return fmt.Errorf("cannot determine the formats of %s: %w", outputPath, err)
	}
	if err := checkInputs(inputs, outputPath, formats[0]); err != nil {
		return err
	}

	confirmer := asker()

	// Ask before clobbering an existing output.
	if _, err := os.Stat(outputPath); err == nil {
		ok, err := confirmer.Continue(outputPath, runConfig.Question.Policy, question.Overwrite)
		if err != nil {
			return fmt.Errorf("failed to confirm overwrite: %w", err)
		}
		if !ok {
			return hints.Abort(hints.Declined, fmt.Sprintf("%s exists and was not overwritten", outputPath))
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("could not stat output %s: %w", outputPath, err)
	}

	output, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, util.UserWritableFilePerms)
	if err != nil {
		return fmt.Errorf("failed to create output %s: %w", outputPath, err)
	}

	committed := false
	// Robust cleanup
	defer func() {
		if err := output.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("failed to close output %s: %w", outputPath, err)
		}
		if retErr == nil && committed {
			return
		}
		// Never leave a partial output behind.
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			plog.Warn("Failed to remove incomplete output", "path", outputPath, "error", err)
		}
	}()

	plan := &pathcompression.Plan{
		Level:          runConfig.Compression.Level,
		QuestionPolicy: runConfig.Question.Policy,
		Visibility: archive.Visibility{
			ReadHidden: runConfig.Compression.ReadHidden,
			Exclude:    runConfig.Compression.ExcludeFiles(),
		},
		Quiet:   runConfig.Runtime.Quiet,
		Metrics: runConfig.Metrics,
	}

	compressor := pathcompression.NewPathCompressor(
		runConfig.Compression.BufferSizeKB,
		runConfig.Compression.Workers,
		confirmer,
		newSevenZip(runConfig.SevenZip.Binary),
	)
	compressor.LimitZipMemory(int64(runConfig.Compression.ZipMemoryLimitMB) << 20)

	startTime := time.Now()
	committed, err = compressor.Compress(ctx, inputs, formats, output, outputPath, plan)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return err // The error will be logged with full details by main()
	}
	if !committed {
		if formats[0] == format.Rar {
			return hints.Abort(hints.Unsupported, "rar archives cannot be created, no output written")
		}
		return hints.Abort(hints.Declined, "compression aborted, no output written")
	}
	plog.Info(buildinfo.Name+" finished successfully.", "output", outputPath, "duration", duration)
	return nil
}

// loadRunConfig loads the configuration file named by -config (or the default
// one), merges the flags over it, validates the result and applies its
// logging settings.
func loadRunConfig(flagMap map[string]any) (config.Config, error) {
	configPath, _ := flagMap["config"].(string)
	if configPath == "" {
		var err error
		configPath, err = config.DefaultPath()
		if err != nil {
			return config.Config{}, err
		}
	}

	loadedConfig, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	runConfig := config.MergeConfigWithFlags(loadedConfig, flagMap)

	// CRITICAL: Validate the config for the run
	if err := runConfig.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	// Set the global log level based on the final configuration.
	plog.SetLevel(plog.LevelFromString(runConfig.LogLevel))
	plog.SetQuiet(runConfig.Runtime.Quiet)
	return runConfig, nil
}

// checkInputs rejects requests that cannot produce a sensible output.
func checkInputs(inputs []string, outputPath string, first format.Format) error {
	outInfo, outErr := os.Stat(outputPath)

	for _, in := range inputs {
		info, err := os.Lstat(in)
		if err != nil {
			return fmt.Errorf("invalid input: %w", err)
		}
		if util.SamePath(in, outputPath) || (outErr == nil && os.SameFile(info, outInfo)) {
			return fmt.Errorf("%w: %s", ErrOutputIsInput, in)
		}
		if !first.IsArchive() && info.IsDir() {
			return fmt.Errorf("%s is a directory, a %s stream holds a single file; use an archive format like out.tar%s", in, first, first.Extension())
		}
	}

	if !first.IsArchive() && len(inputs) > 1 {
		return fmt.Errorf("a %s stream holds a single file but %d inputs were given; use an archive format like out.tar%s", first, len(inputs), first.Extension())
	}

	if first == format.Zip {
		if invalid := invalidUTF8Paths(inputs); len(invalid) > 0 {
			return fmt.Errorf("zip entry names must be UTF-8, invalid input paths: %s", strings.Join(invalid, ", "))
		}
	}
	return nil
}

func invalidUTF8Paths(paths []string) []string {
	var invalid []string
	for _, p := range paths {
		if !utf8.ValidString(p) {
			invalid = append(invalid, p)
		}
	}
	return invalid
}
