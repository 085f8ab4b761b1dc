package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-press/pkg/buildinfo"
	"github.com/paulschiretz/pgl-press/pkg/codec"
	"github.com/paulschiretz/pgl-press/pkg/plog"
	"github.com/paulschiretz/pgl-press/pkg/question"
	"github.com/paulschiretz/pgl-press/pkg/sevenzip"
	"github.com/paulschiretz/pgl-press/pkg/util"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "pgl-press.config.json"

// configDirName is the sub-directory of the user config directory holding ConfigFileName.
const configDirName = "pgl-press"

var validLogLevels = []string{"debug", "notice", "info", "warn", "error"}

type CompressionConfig struct {
	// Level is applied to every codec in the chain and clamped to each
	// codec's range. null selects each codec's own default.
	Level        codec.Level `json:"level"`
	Workers      int         `json:"workers"`
	BufferSizeKB int         `json:"bufferSizeKB"`
	ReadHidden   bool        `json:"readHidden"`
	// ZipMemoryLimitMB bounds the memory of zip archives that are built in
	// memory before an outer codec compresses them. 0 means unlimited.
	ZipMemoryLimitMB int `json:"zipMemoryLimitMB"`
	// Note: omitempty is intentionally not used for user-configurable slices
	// so that they appear in the generated config file for better discoverability.
	DefaultExcludeFiles []string `json:"defaultExcludeFiles,omitempty"`
	UserExcludeFiles    []string `json:"excludeFiles"`
}

type QuestionConfig struct {
	Policy question.Policy `json:"policy"`
}

type SevenZipConfig struct {
	// Binary is the external archiver used for .7z outputs.
	// SECURITY: It is executed as provided. Ensure it is from a trusted source.
	Binary string `json:"binary"`
}

type RuntimeConfig struct {
	Quiet bool
}

type Config struct {
	Version     string            `json:"version"`
	Path        string            `json:"-"` // Never added to config file
	Runtime     RuntimeConfig     `json:"-"` // Never added to config file
	LogLevel    string            `json:"logLevel"`
	Metrics     bool              `json:"metrics"`
	Compression CompressionConfig `json:"compression"`
	Question    QuestionConfig    `json:"question"`
	SevenZip    SevenZipConfig    `json:"sevenZip"`
}

// NewDefault creates and returns a Config struct with sensible default values.
func NewDefault() Config {
	return Config{
		Version:  buildinfo.Version,
		LogLevel: "info",
		Metrics:  false,
		Compression: CompressionConfig{
			Level:        codec.Default, // Each codec picks its own default level.
			Workers:      0,             // 0 lets the block encoders use every CPU.
			BufferSizeKB: 256,           // Default to 256KB buffer. Keep it between 64KB-4MB
			ReadHidden:   false,
			DefaultExcludeFiles: []string{
				// OS metadata files that never belong in an archive.
				".DS_Store",   // macOS folder customization file
				"Thumbs.db",   // Windows image thumbnail cache
				"desktop.ini", // Windows folder customization file
			},
			UserExcludeFiles: []string{},
			ZipMemoryLimitMB: 0, // No bound on in-memory zip builds.
		},
		Question: QuestionConfig{
			Policy: question.Ask,
		},
		SevenZip: SevenZipConfig{
			Binary: sevenzip.DefaultBinary,
		},
	}
}

// DefaultPath returns the location of the configuration file inside the
// user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(dir, configDirName, ConfigFileName), nil
}

// Load reads the configuration file at path on top of the defaults.
// If the file doesn't exist, it returns the default config without an error.
// If the file exists but fails to parse, it returns an error and a zero-value config.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not determine absolute path for config file %s: %w", path, err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			config := NewDefault() // Config file doesn't exist, which is a normal case.
			config.Path = absPath
			return config, nil
		}
		return Config{}, fmt.Errorf("error opening config file %s: %w", absPath, err)
	}
	defer file.Close()

	plog.Debug("Loading configuration", "path", absPath)
	// Start with default values, then overwrite with the file's content.
	// This makes the config loading resilient to missing fields in the JSON file.
	config := NewDefault()
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", absPath, err)
	}
	config.Path = absPath

	// NOTE: if config.Version differs from the app version a migration step goes here.
	config.Version = buildinfo.Version
	return config, nil
}

// Generate creates or overwrites the configuration file at config.Path.
func Generate(config Config) error {
	if config.Path == "" {
		return fmt.Errorf("config path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), util.UserWritableDirPerms); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal the config into nicely formatted JSON.
	jsonData, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON: %w", err)
	}

	if err := os.WriteFile(config.Path, jsonData, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	plog.Info("Successfully saved config file", "path", config.Path)
	return nil
}

// Validate checks the configuration for logical errors and inconsistencies.
func (c *Config) Validate() error {
	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("logLevel must be one of %s, got %q", strings.Join(validLogLevels, ", "), c.LogLevel)
	}
	if c.Compression.Workers < 0 {
		return fmt.Errorf("compression.workers cannot be negative")
	}
	if c.Compression.ZipMemoryLimitMB < 0 {
		return fmt.Errorf("compression.zipMemoryLimitMB cannot be negative")
	}
	if c.Compression.BufferSizeKB <= 0 {
		return fmt.Errorf("compression.bufferSizeKB must be greater than 0")
	}
	if _, err := question.ParsePolicy(string(c.Question.Policy)); err != nil {
		return fmt.Errorf("question.policy: %w", err)
	}
	if strings.TrimSpace(c.SevenZip.Binary) == "" {
		return fmt.Errorf("sevenZip.binary cannot be empty")
	}

	var err error
	c.SevenZip.Binary, err = util.ExpandPath(c.SevenZip.Binary)
	if err != nil {
		return fmt.Errorf("could not expand sevenZip.binary: %w", err)
	}

	if err := validateGlobPatterns("defaultExcludeFiles", c.Compression.DefaultExcludeFiles); err != nil {
		return err
	}
	if err := validateGlobPatterns("excludeFiles", c.Compression.UserExcludeFiles); err != nil {
		return err
	}
	return nil
}

// LogSummary prints a user-friendly summary of the configuration.
func (c *Config) LogSummary() {
	logArgs := []any{
		"config", c.Path,
		"log_level", c.LogLevel,
		"level", c.Compression.Level,
		"workers", c.Compression.Workers,
		"buffer_size_kb", c.Compression.BufferSizeKB,
		"read_hidden", c.Compression.ReadHidden,
		"zip_memory_limit_mb", c.Compression.ZipMemoryLimitMB,
		"question", c.Question.Policy,
		"sevenzip", c.SevenZip.Binary,
		"metrics", c.Metrics,
	}
	if finalExcludeFiles := c.Compression.ExcludeFiles(); len(finalExcludeFiles) > 0 {
		logArgs = append(logArgs, "exclude_files", strings.Join(finalExcludeFiles, ", "))
	}
	plog.Info("Configuration loaded", logArgs...)
}

func isValidLogLevel(s string) bool {
	for _, l := range validLogLevels {
		if strings.EqualFold(l, s) {
			return true
		}
	}
	return false
}

// validateGlobPatterns checks if a list of strings are valid glob patterns.
func validateGlobPatterns(fieldName string, patterns []string) error {
	for _, pattern := range patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid glob pattern for %s: %q - %w", fieldName, pattern, err)
		}
	}
	return nil
}

// ExcludeFiles returns the combined, deduplicated default and user exclusion patterns.
func (c *CompressionConfig) ExcludeFiles() []string {
	return util.MergeAndDeduplicate(c.DefaultExcludeFiles, c.UserExcludeFiles)
}

// MergeConfigWithFlags overlays the configuration values from flags on top of a base
// configuration. It iterates over the setFlags map, which contains only the flags
// explicitly provided by the user on the command line.
func MergeConfigWithFlags(base Config, setFlags map[string]any) Config {
	merged := base

	for name, value := range setFlags {
		switch name {
		case "log-level":
			merged.LogLevel = value.(string)
		case "metrics":
			merged.Metrics = value.(bool)
		case "quiet":
			merged.Runtime.Quiet = value.(bool)
		case "level":
			merged.Compression.Level = value.(codec.Level)
		case "workers":
			merged.Compression.Workers = value.(int)
		case "buffer-size-kb":
			merged.Compression.BufferSizeKB = value.(int)
		case "zip-memory-limit-mb":
			merged.Compression.ZipMemoryLimitMB = value.(int)
		case "hidden":
			merged.Compression.ReadHidden = value.(bool)
		case "exclude":
			merged.Compression.UserExcludeFiles = value.([]string)
		case "yes":
			if value.(bool) {
				merged.Question.Policy = question.AlwaysYes
			}
		case "no":
			if value.(bool) {
				merged.Question.Policy = question.AlwaysNo
			}
		case "sevenzip-binary":
			merged.SevenZip.Binary = value.(string)
		default:
			plog.Debug("unhandled flag in MergeConfigWithFlags", "flag", name)
		}
	}
	return merged
}
