package engine

import (
	"fmt"
	"runtime"
)

// echoCommand returns a shell command that prints text to stdout,
// portable across the unix/cmd.exe shells used by shellCommand.
func echoCommand(text string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("echo %s", text)
	}
	return fmt.Sprintf("echo %s", text)
}

// failCommand returns a shell command that exits with a non-zero status.
func failCommand() string {
	if runtime.GOOS == "windows" {
		return "exit 1"
	}
	return "exit 1"
}

// sleepCommand returns a shell command that sleeps for the given number of
// seconds, used to exercise the timeout escalation path.
func sleepCommand(seconds int) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("ping -n %d 127.0.0.1 >NUL", seconds+1)
	}
	return fmt.Sprintf("sleep %d", seconds)
}

// pwdCommand returns a shell command that prints the process's current
// working directory to stdout, used to confirm working_directory is wired
// to the spawned process rather than merely accepted and ignored.
func pwdCommand() string {
	if runtime.GOOS == "windows" {
		return "cd"
	}
	return "pwd"
}

// stdoutAndStderrCommand returns a shell command that writes a distinct
// line to each of stdout and stderr, used to exercise include_stderr.
func stdoutAndStderrCommand() string {
	if runtime.GOOS == "windows" {
		return "echo to-stdout & echo to-stderr 1>&2"
	}
	return "echo to-stdout; echo to-stderr 1>&2"
}
