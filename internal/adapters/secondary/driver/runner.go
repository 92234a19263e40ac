package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
)

// ScriptRunner executes an automation script and returns its trimmed output
type ScriptRunner interface {
	Run(ctx context.Context, script string) (string, error)
}

// Runner runs AppleScript through osascript.
//
// A script that outlives the timeout is left running: the target application
// may still complete the action, the caller simply stops waiting.
type Runner struct {
	command string
	args    []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner creates an osascript runner with the given hard timeout
func NewRunner(timeout time.Duration, logger *slog.Logger) *Runner {
	return NewCommandRunner("osascript", []string{"-"}, timeout, logger)
}

// NewCommandRunner creates a runner that feeds scripts on stdin to command
func NewCommandRunner(command string, args []string, timeout time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{
		command: command,
		args:    args,
		timeout: timeout,
		logger:  logger.With("component", "script-runner"),
	}
}

type runResult struct {
	stdout string
	stderr string
	err    error
}

// Run executes script and waits for it, the timeout, or ctx, whichever comes first
func (r *Runner) Run(ctx context.Context, script string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(r.command, r.args...) // #nosec G204 - command is fixed at construction
	cmd.Stdin = strings.NewReader(script)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting %s: %w", r.command, err)
	}

	done := make(chan runResult, 1)
	go func() {
		err := cmd.Wait()
		done <- runResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			msg := strings.TrimSpace(res.stderr)
			if msg == "" {
				return "", fmt.Errorf("%s: %w", r.command, res.err)
			}
			return "", fmt.Errorf("%s: %s", r.command, msg)
		}
		return strings.TrimSpace(res.stdout), nil
	case <-timer.C:
		r.logger.Warn("Script timed out, leaving it to finish in the background",
			slog.Duration("timeout", r.timeout),
			slog.Int("pid", cmd.Process.Pid),
		)
		return "", entities.ErrDriverTimeout
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", entities.ErrDriverTimeout
		}
		return "", ctx.Err()
	}
}

// quote renders s as an AppleScript string literal
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
