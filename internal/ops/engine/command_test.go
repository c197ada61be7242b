package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/opsmesh/opsmesh/pkg/envelope"
)

func TestCommandEngine_Execute_Success(t *testing.T) {
	eng := NewCommandEngine(5 * time.Second)
	result, err := eng.Execute(context.Background(), echoCommand("hello"), "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode)
	}
	if result.TimedOut {
		t.Error("did not expect timeout")
	}
	if !result.Success {
		t.Error("expected success=true for exit code 0")
	}
	if result.ExecutionTimeMs < 0 {
		t.Errorf("expected non-negative execution time, got %d", result.ExecutionTimeMs)
	}
}

func TestCommandEngine_Execute_SuccessFlagFollowsExitCode(t *testing.T) {
	eng := NewCommandEngine(5 * time.Second)
	result, err := eng.Execute(context.Background(), failCommand(), "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Error("expected success=false for non-zero exit code")
	}
}

func TestCommandEngine_Execute_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	eng := NewCommandEngine(5 * time.Second)
	result, err := eng.Execute(context.Background(), pwdCommand(), dir, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Stdout, dir) {
		t.Errorf("expected stdout to report working directory %q, got %q", dir, result.Stdout)
	}
}

func TestCommandEngine_Execute_NonZeroExit(t *testing.T) {
	eng := NewCommandEngine(5 * time.Second)
	result, err := eng.Execute(context.Background(), failCommand(), "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode == 0 {
		t.Error("expected non-zero exit code")
	}
}

func TestCommandEngine_Execute_Timeout(t *testing.T) {
	eng := NewCommandEngine(5 * time.Second)
	result, err := eng.Execute(context.Background(), sleepCommand(2), "", 300*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.TimedOut {
		t.Error("expected command to time out")
	}
}

func TestCommandEngine_Execute_EmptyCommand(t *testing.T) {
	eng := NewCommandEngine(5 * time.Second)
	_, err := eng.Execute(context.Background(), "", "", 0)
	opErr, ok := err.(*envelope.OpError)
	if !ok || opErr.Code != envelope.ErrMissingParameter {
		t.Fatalf("expected MISSING_PARAMETER, got %v", err)
	}
}

func TestValidateCommand_DenyList(t *testing.T) {
	cases := []string{"rm -rf /", "shutdown now", "dd if=/dev/zero", "mkfs.ext4 /dev/sda1"}
	for _, c := range cases {
		if err := validateCommand(c); err == nil {
			t.Errorf("expected %q to be rejected", c)
		} else if err.Code != envelope.ErrForbiddenCommand {
			t.Errorf("expected FORBIDDEN_COMMAND for %q, got %s", c, err.Code)
		}
	}
}

func TestValidateCommand_DenyList_CaseInsensitive(t *testing.T) {
	cases := []string{"RM -rf /", "Shutdown now", "Dd if=/dev/zero", "MKFS.ext4 /dev/sda1"}
	for _, c := range cases {
		if err := validateCommand(c); err == nil {
			t.Errorf("expected %q to be rejected regardless of case", c)
		} else if err.Code != envelope.ErrForbiddenCommand {
			t.Errorf("expected FORBIDDEN_COMMAND for %q, got %s", c, err.Code)
		}
	}
}

func TestValidateCommand_ForbiddenSubstrings(t *testing.T) {
	cases := []string{"sudo ls", "su - root", "echo hi >/dev/null", "cat /proc/1/maps >/proc/output"}
	for _, c := range cases {
		if err := validateCommand(c); err == nil {
			t.Errorf("expected %q to be rejected", c)
		}
	}
}

func TestValidateCommand_Allowed(t *testing.T) {
	cases := []string{"ls -la", "echo hello", "grep foo bar.txt"}
	for _, c := range cases {
		if err := validateCommand(c); err != nil {
			t.Errorf("expected %q to be allowed, got %v", c, err)
		}
	}
}

func TestCommandEngine_ExecuteStream(t *testing.T) {
	eng := NewCommandEngine(5 * time.Second)
	chunks := make(chan CommandChunk, 16)

	if err := eng.ExecuteStream(context.Background(), echoCommand("streamed"), "", 0, true, chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var lines []string
	for c := range chunks {
		lines = append(lines, c.Line)
	}
	if len(lines) == 0 {
		t.Fatal("expected at least one streamed line")
	}
	if lines[len(lines)-1][:10] != "EXIT_CODE:" {
		t.Errorf("expected last line to be an EXIT_CODE line, got %q", lines[len(lines)-1])
	}
}

func TestCommandEngine_ExecuteStream_IncludeStderrFalseOmitsStderrLines(t *testing.T) {
	eng := NewCommandEngine(5 * time.Second)
	chunks := make(chan CommandChunk, 16)

	if err := eng.ExecuteStream(context.Background(), stdoutAndStderrCommand(), "", 0, false, chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var lines []string
	for c := range chunks {
		lines = append(lines, c.Line)
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "STDERR: ") {
			t.Errorf("expected no STDERR lines when include_stderr is false, got %q", line)
		}
	}
}

func TestCommandEngine_ExecuteStream_IncludeStderrTrueEmitsStderrLines(t *testing.T) {
	eng := NewCommandEngine(5 * time.Second)
	chunks := make(chan CommandChunk, 16)

	if err := eng.ExecuteStream(context.Background(), stdoutAndStderrCommand(), "", 0, true, chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawStderr bool
	for c := range chunks {
		if strings.HasPrefix(c.Line, "STDERR: ") {
			sawStderr = true
		}
	}
	if !sawStderr {
		t.Error("expected at least one STDERR line when include_stderr is true")
	}
}
