// Package proc runs external measurement tools to completion, capturing
// their full output without risking pipe-buffer deadlock.
package proc

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrMissingExecutable reports a tool absent from PATH. It is
	// detected before launch and never conflated with a nonzero exit.
	ErrMissingExecutable = errors.New("executable not found")

	// ErrTimeout reports a child terminated at its deadline. The
	// partial Result is still returned alongside, never as a success.
	ErrTimeout = errors.New("process timed out")
)

// Command describes one external tool invocation.
type Command struct {
	Name    string
	Args    []string
	Stdin   string
	Timeout time.Duration
	// Env entries overlay the inherited environment.
	Env []string
}

// Result is the completed outcome of one invocation. A nonzero exit
// code is not an error here: callers classify exit codes per tool.
type Result struct {
	Name     string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Waiter joins a started process, draining both output streams to EOF
// and reaping the child before returning.
type Waiter interface {
	Wait() (Result, error)
}

// Runner abstracts process execution for the components that fan
// probes out, so tests can substitute scripted processes.
type Runner interface {
	Run(ctx context.Context, c Command) (Result, error)
	Start(c Command) (Waiter, error)
	LookPath(name string) (string, error)
}

// ExecRunner executes commands on the host. The zero value is usable.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) (Result, error) { return Run(ctx, c) }
func (ExecRunner) Start(c Command) (Waiter, error)                    { return Start(c) }
func (ExecRunner) LookPath(name string) (string, error)               { return LookPath(name) }

// LookPath resolves name on PATH, reporting ErrMissingExecutable when
// absent. Measurements call this before any probe runs.
func LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", ErrMissingExecutable
	}
	return path, nil
}

// Run executes c to completion. Output is captured in full regardless
// of size. When c.Timeout elapses the child is killed, its streams are
// drained, and ErrTimeout is returned with whatever output existed.
func Run(ctx context.Context, c Command) (Result, error) {
	h, err := start(ctx, c)
	if err != nil {
		return Result{Name: c.Name, Args: c.Args, ExitCode: -1}, err
	}
	return h.Wait()
}

// Start launches c without waiting, for concurrent fan-out. Every
// started process must be joined via Wait, on error paths included, so
// children are reaped and pipes drained.
func Start(c Command) (Waiter, error) {
	return start(context.Background(), c)
}

type handle struct {
	cmd    *exec.Cmd
	ctx    context.Context
	cancel context.CancelFunc
	name   string
	args   []string
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func start(ctx context.Context, c Command) (*handle, error) {
	if _, err := exec.LookPath(c.Name); err != nil {
		return nil, ErrMissingExecutable
	}

	cancel := context.CancelFunc(func() {})
	if c.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
	}

	h := &handle{ctx: ctx, cancel: cancel, name: c.Name, args: c.Args}

	h.cmd = exec.CommandContext(ctx, c.Name, c.Args...)
	h.cmd.Stdout = &h.stdout
	h.cmd.Stderr = &h.stderr

	// A killed tool can leave grandchildren holding its output pipes
	// open; don't let them stall the join.
	h.cmd.WaitDelay = time.Second

	if c.Stdin != "" {
		h.cmd.Stdin = strings.NewReader(c.Stdin)
	}
	if len(c.Env) > 0 {
		h.cmd.Env = append(os.Environ(), c.Env...)
	}

	if err := h.cmd.Start(); err != nil {
		cancel()
		return nil, err
	}

	return h, nil
}

// Wait blocks until the child exits and both streams hit EOF; the
// buffers are wired before start, so joining N processes after starting
// them all never deadlocks on pipe buffers.
func (h *handle) Wait() (Result, error) {
	defer h.cancel()

	err := h.cmd.Wait()

	res := Result{
		Name:     h.name,
		Args:     h.args,
		ExitCode: h.cmd.ProcessState.ExitCode(),
		Stdout:   h.stdout.String(),
		Stderr:   h.stderr.String(),
	}

	if h.ctx.Err() == context.DeadlineExceeded {
		return res, ErrTimeout
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Nonzero exit: the caller's taxonomy decides.
			return res, nil
		}
		return res, err
	}

	return res, nil
}
