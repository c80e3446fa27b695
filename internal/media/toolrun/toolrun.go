// Package toolrun invokes external command-line tools (ffmpeg, demucs) with an
// optional per-invocation timeout and classifies their failures.
package toolrun

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"peiyin/internal/services"
)

// maxOutputTail bounds how much tool output is copied into an error message.
const maxOutputTail = 2048

// Executor abstracts command execution for testability. Run returns the
// combined stdout and stderr of the process.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// CommandExecutor runs binaries with os/exec.
type CommandExecutor struct{}

// Run executes binary in its own process group and waits for it to exit.
// Cancelling ctx kills the whole group so helpers spawned by the tool do not
// outlive it.
func (CommandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = 5 * time.Second
	return cmd.CombinedOutput()
}

// Invocation describes one tool call.
type Invocation struct {
	Stage   string
	Binary  string
	Args    []string
	Timeout time.Duration // zero waits until the tool exits or ctx ends
}

// Invoke runs inv through exec. A timeout surfaces as services.ErrTimeout, a
// non-zero exit as services.ErrExternalTool carrying the tail of the tool
// output, and cancellation of ctx is returned unwrapped.
func Invoke(ctx context.Context, executor Executor, inv Invocation) ([]byte, error) {
	if executor == nil {
		executor = CommandExecutor{}
	}
	runCtx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	output, err := executor.Run(runCtx, inv.Binary, inv.Args)
	if err == nil {
		return output, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return output, ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return output, services.Wrap(services.ErrTimeout, inv.Stage, inv.Binary,
			fmt.Sprintf("no exit after %s", inv.Timeout), err)
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return output, services.Wrap(services.ErrConfiguration, inv.Stage, inv.Binary, "binary not runnable", err)
	}
	return output, services.Wrap(services.ErrExternalTool, inv.Stage, inv.Binary, Tail(output), err)
}

// Tail returns the last maxOutputTail bytes of output, trimmed.
func Tail(output []byte) string {
	text := strings.TrimSpace(string(output))
	if len(text) <= maxOutputTail {
		return text
	}
	return "..." + text[len(text)-maxOutputTail:]
}
