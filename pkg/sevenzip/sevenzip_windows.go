//go:build windows

package sevenzip

import (
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// createCommand creates the archiver command on Windows in a new process
// group so that cancellation terminates the whole process tree.
func (a *Archiver) createCommand(ctx context.Context, args ...string) *exec.Cmd {
	cmd := a.commandContext(ctx, a.binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
	return cmd
}
