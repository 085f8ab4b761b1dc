//go:build !windows

package sevenzip

import (
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// createCommand creates the archiver command on Unix-like systems. The
// archiver runs in its own process group so cancellation also stops any
// helper processes it spawned.
func (a *Archiver) createCommand(ctx context.Context, args ...string) *exec.Cmd {
	cmd := a.commandContext(ctx, a.binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	return cmd
}
