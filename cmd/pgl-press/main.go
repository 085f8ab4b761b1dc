package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/paulschiretz/pgl-press/cmd"
	"github.com/paulschiretz/pgl-press/pkg/buildinfo"
	"github.com/paulschiretz/pgl-press/pkg/flagparse"
	"github.com/paulschiretz/pgl-press/pkg/hints"
	"github.com/paulschiretz/pgl-press/pkg/plog"
)

// run encapsulates the main application logic and returns an error if something
// goes wrong, allowing the main function to handle exit codes.
func run(ctx context.Context, args []string) error {
	command, flagMap, positional, err := flagparse.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	switch command {
	case flagparse.None:
		// Usage was printed.
		return nil
	case flagparse.Version:
		return cmd.RunVersion(os.Stdout, buildinfo.Name, buildinfo.Version)
	case flagparse.Init:
		return cmd.RunInit(ctx, flagMap)
	case flagparse.Compress:
		plog.Debug("Starting "+buildinfo.Name, "version", buildinfo.Version, "pid", os.Getpid())
		return cmd.RunCompress(ctx, flagMap, positional)
	default:
		return fmt.Errorf("internal error: unknown command %s", command)
	}
}

func main() {
	// Set up a context that is canceled when an interrupt signal is received.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Listen for interrupt signals (like Ctrl+C) in a separate goroutine.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		plog.Warn("Interrupt received, stopping")
		cancel()
	}()

	if err := run(ctx, os.Args[1:]); err != nil {
		if hints.IsHint(err) {
			plog.Info(err.Error(), "reason", hints.ReasonOf(err))
			return
		}
		plog.Error(buildinfo.Name+" exited with error", "error", err)
		os.Exit(1)
	}
}
