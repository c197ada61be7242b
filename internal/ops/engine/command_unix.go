//go:build !windows

package engine

import (
	"os/exec"
	"syscall"
)

// terminateProcess sends SIGTERM; WaitDelay on the *exec.Cmd escalates to
// SIGKILL if the process is still alive once the grace period elapses.
// Mirrors the daemon's StopProcess SIGTERM-then-SIGKILL sequence.
func terminateProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Signal(syscall.SIGTERM)
}
