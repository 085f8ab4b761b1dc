package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/paulschiretz/pgl-press/pkg/buildinfo"
	"github.com/paulschiretz/pgl-press/pkg/config"
	"github.com/paulschiretz/pgl-press/pkg/hints"
	"github.com/paulschiretz/pgl-press/pkg/plog"
	"github.com/paulschiretz/pgl-press/pkg/question"
)

// RunInit handles the 'init' command: it writes the settings given as flags
// into the configuration file, on top of the existing file or the defaults.
func RunInit(ctx context.Context, flagMap map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	configPath, _ := flagMap["config"].(string)
	if configPath == "" {
		var err error
		configPath, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	initDefault, _ := flagMap["default"].(bool)
	force, _ := flagMap["force"].(bool)

	var baseConfig config.Config
	if initDefault {
		if _, err := os.Stat(configPath); err == nil && !force {
			plog.Warn("Configuration file already exists, -default will replace all custom settings", "path", configPath)
			ok, err := asker().Continue(configPath, question.Ask, question.Overwrite)
			if err != nil {
				return fmt.Errorf("failed to confirm overwrite: %w", err)
			}
			if !ok {
				return hints.Abort(hints.Declined, buildinfo.Name+" init canceled by user")
			}
		}
		baseConfig = config.NewDefault()
		baseConfig.Path = configPath
	} else {
		// Try to load existing config to preserve settings.
		// If it fails (e.g. corrupt JSON), we fall back to defaults.
		// Note: config.Load returns NewDefault() if the file simply doesn't exist.
		var err error
		baseConfig, err = config.Load(configPath)
		if err != nil {
			plog.Warn("Could not load existing configuration, starting with defaults.", "reason", err)
			baseConfig = config.NewDefault()
			baseConfig.Path = configPath
		}
	}

	runConfig := config.MergeConfigWithFlags(baseConfig, flagMap)
	if err := runConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	startTime := time.Now()
	if err := config.Generate(runConfig); err != nil {
		return fmt.Errorf("failed to generate config file: %w", err)
	}
	duration := time.Since(startTime).Round(time.Millisecond)
	plog.Info(buildinfo.Name+" configuration successfully initialized.", "path", runConfig.Path, "duration", duration)
	return nil
}
