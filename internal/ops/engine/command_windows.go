//go:build windows

package engine

import "os/exec"

// terminateProcess kills the process directly — Windows has no SIGTERM
// equivalent that cmd.exe children reliably honor.
func terminateProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
