package flagparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-press/pkg/buildinfo"
	"github.com/paulschiretz/pgl-press/pkg/codec"
)

// ErrConflictingAnswers is returned when both -yes and -no are given.
var ErrConflictingAnswers = errors.New("-yes and -no cannot be used together")

// cliFlags holds pointers to all possible command-line flags.
// Fields are pointers so we can distinguish between "not registered for this command" (nil)
// and "registered but not set by user" (non-nil pointer to zero value).
type cliFlags struct {
	// Global
	LogLevel   *string
	Metrics    *bool
	ConfigPath *string

	// Shared: Compress / Init
	Level          *string
	Yes            *bool
	No             *bool
	Hidden         *bool
	Exclude        *string
	Workers        *int
	BufferSizeKB   *int
	ZipMemoryMB    *int
	SevenZipBinary *string

	// Compress specific
	Quiet *bool

	// Init specific
	Force   *bool
	Default *bool
}

func registerGlobalFlags(fs *flag.FlagSet, f *cliFlags) {
	f.LogLevel = fs.String("log-level", "info", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	f.Metrics = fs.Bool("metrics", false, "Log byte and entry counters while compressing and a summary at the end.")
	f.ConfigPath = fs.String("config", "", "Path to the configuration file. Defaults to the user config directory.")
}

func registerSharedFlags(fs *flag.FlagSet, f *cliFlags) {
	f.Level = fs.String("level", "", "Compression level, or 'default'. Clamped to the range of each codec.")
	f.Yes = fs.Bool("yes", false, "Answer every question with yes.")
	f.No = fs.Bool("no", false, "Answer every question with no.")
	f.Hidden = fs.Bool("hidden", false, "Include hidden (dot-prefixed) files and directories in archives.")
	f.Exclude = fs.String("exclude", "", "Comma-separated list of case-insensitive patterns to exclude from archives (supports glob patterns).")
	f.Workers = fs.Int("workers", 0, "Number of parallel block encoders per codec (0 = number of CPUs).")
	f.BufferSizeKB = fs.Int("buffer-size-kb", 0, "Size of the I/O buffer in kilobytes.")
	f.ZipMemoryMB = fs.Int("zip-memory-limit-mb", 0, "Memory limit in megabytes for zip archives built in memory before further compression (0 = unlimited).")
	f.SevenZipBinary = fs.String("sevenzip-binary", "", "Name or path of the external 7z archiver.")
}

func registerCompressFlags(fs *flag.FlagSet, f *cliFlags) {
	registerSharedFlags(fs, f)
	f.Quiet = fs.Bool("quiet", false, "Only log warnings and errors.")
}

func registerInitFlags(fs *flag.FlagSet, f *cliFlags) {
	// Init supports all compress settings (to generate config) plus 'force' and 'default'.
	registerSharedFlags(fs, f)
	f.Force = fs.Bool("force", false, "Overwrite an existing configuration file without asking.")
	f.Default = fs.Bool("default", false, "Start from the defaults instead of the existing configuration.")
}

// Parse parses the provided arguments (usually os.Args[1:]) and returns the
// command, a map of the flags the user set, and the positional arguments.
func Parse(args []string) (Command, map[string]any, []string, error) {
	// Handle top-level help
	// If no arguments provided, print help and exit.
	if len(args) == 0 {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil, nil
	}

	cmdStr := strings.ToLower(args[0])

	if cmdStr == "help" || cmdStr == "-h" || cmdStr == "-help" || cmdStr == "--help" {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil, nil
	}

	command, err := ParseCommand(cmdStr)
	if err != nil {
		return None, nil, nil, err
	}

	f := &cliFlags{}

	switch command {
	case Compress:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerCompressFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "[flags] <input>... <output>", "Compress the inputs into output. The formats are taken from the output's extensions, e.g. out.tar.gz.", fs)
		}

		if err := fs.Parse(args[1:]); err != nil {
			return command, nil, nil, err
		}
		if fs.NArg() < 2 {
			fs.Usage()
			return command, nil, nil, fmt.Errorf("compress needs at least one input and an output, got %d argument(s)", fs.NArg())
		}
		flagMap, err := flagsToMap(fs, f)
		return command, flagMap, fs.Args(), err

	case Init:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerInitFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "[flags]", "Write a configuration file with the given settings.", fs)
		}

		if err := fs.Parse(args[1:]); err != nil {
			return command, nil, nil, err
		}
		if fs.NArg() > 0 {
			return command, nil, nil, fmt.Errorf("init takes no arguments, got %q", fs.Args())
		}
		flagMap, err := flagsToMap(fs, f)
		return command, flagMap, nil, err

	case Version:
		return command, nil, nil, nil

	default:
		return None, nil, nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

func flagsToMap(fs *flag.FlagSet, f *cliFlags) (map[string]any, error) {
	// Create a map of the flags that were explicitly set by the user, along with their values.
	// This map is used to selectively override the base configuration.
	usedFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { usedFlags[f.Name] = true })

	flagMap := make(map[string]any)

	addIfUsed(flagMap, usedFlags, "log-level", f.LogLevel)
	addIfUsed(flagMap, usedFlags, "metrics", f.Metrics)
	addIfUsed(flagMap, usedFlags, "config", f.ConfigPath)

	addIfUsed(flagMap, usedFlags, "yes", f.Yes)
	addIfUsed(flagMap, usedFlags, "no", f.No)
	addIfUsed(flagMap, usedFlags, "hidden", f.Hidden)
	addIfUsed(flagMap, usedFlags, "workers", f.Workers)
	addIfUsed(flagMap, usedFlags, "buffer-size-kb", f.BufferSizeKB)
	addIfUsed(flagMap, usedFlags, "zip-memory-limit-mb", f.ZipMemoryMB)
	addIfUsed(flagMap, usedFlags, "sevenzip-binary", f.SevenZipBinary)
	addIfUsed(flagMap, usedFlags, "quiet", f.Quiet)

	addIfUsed(flagMap, usedFlags, "force", f.Force)
	addIfUsed(flagMap, usedFlags, "default", f.Default)

	// Handle flags that require parsing/validation.
	addParsedIfUsed(flagMap, usedFlags, "exclude", f.Exclude, ParseExcludeList)

	if f.Level != nil && usedFlags["level"] {
		level, err := codec.ParseLevel(*f.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid -level: %w", err)
		}
		flagMap["level"] = level
	}

	if yes, no := flagMap["yes"], flagMap["no"]; yes == true && no == true {
		return nil, ErrConflictingAnswers
	}
	return flagMap, nil
}

// addIfUsed adds the value of ptr to flagMap if ptr is not nil and the flag was set.
func addIfUsed[T any](flagMap map[string]any, usedFlags map[string]bool, name string, ptr *T) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = *ptr
	}
}

// addParsedIfUsed adds the parsed value of ptr to flagMap if ptr is not nil and the flag was set.
func addParsedIfUsed(flagMap map[string]any, usedFlags map[string]bool, name string, ptr *string, parser func(string) []string) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = parser(*ptr)
	}
}

// printTopLevelUsage prints the main help message.
func printTopLevelUsage(fs *flag.FlagSet) {
	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "Compress files into chained archive and codec formats.\n\n")
	fmt.Fprintf(fs.Output(), "Usage: %s <command> [flags]\n\n", execName)
	fmt.Fprintf(fs.Output(), "Commands:\n")
	fmt.Fprintf(fs.Output(), "  compress    Compress files, e.g. '%s compress dir out.tar.zst'\n", execName)
	fmt.Fprintf(fs.Output(), "  init        Write a configuration file\n")
	fmt.Fprintf(fs.Output(), "  version     Print the application version\n")
	fmt.Fprintf(fs.Output(), "\nRun '%s <command> -help' for more information on a command.\n", execName)
}

// printSubcommandUsage prints the help message for a specific subcommand.
func printSubcommandUsage(command Command, synopsis, desc string, fs *flag.FlagSet) {
	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "Compress files into chained archive and codec formats.\n\n")
	fmt.Fprintf(fs.Output(), "Usage of the %s command: %s %s %s\n\n", command, execName, command, synopsis)
	fmt.Fprintf(fs.Output(), "%s\n\n", desc)
	fmt.Fprintf(fs.Output(), "Flags:\n")
	fs.PrintDefaults()
}

// ParseExcludeList parses a comma-separated list of file or directory patterns.
// It supports single (') and double (") quotes so items can contain commas or
// spaces; the quotes themselves are dropped. Backslashes are literal
// characters for Windows path compatibility.
func ParseExcludeList(s string) []string {
	var list []string
	var current strings.Builder
	var quoteChar rune

	// Helper to add the current buffered item to the list after trimming whitespace.
	appendItem := func() {
		trimmed := strings.TrimSpace(current.String())
		if trimmed != "" {
			list = append(list, trimmed)
		}
		current.Reset()
	}

	for _, r := range s {
		switch {
		case r == '\'' || r == '"':
			if quoteChar == 0 { // Start of a new quoted section.
				quoteChar = r
			} else if quoteChar == r { // End of the current quoted section.
				quoteChar = 0
			} else { // A different quote character inside an existing quoted section.
				current.WriteRune(r)
			}
		case r == ',' && quoteChar == 0:
			appendItem()
		default:
			current.WriteRune(r)
		}
	}
	appendItem()
	return list
}
