package measurement

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"netrics/pkg/conf"
	"netrics/pkg/proc"
	"netrics/pkg/task"
)

// stubRunner answers every command through one scripted respond
// function and records the commands launched, in order.
type stubRunner struct {
	mu      sync.Mutex
	respond func(c proc.Command) proc.Result
	// fail, when set, can inject a run error (timeout, kill) per
	// command.
	fail    func(c proc.Command) error
	missing map[string]bool
	calls   []proc.Command
}

type stubWaiter struct {
	res proc.Result
}

func (w stubWaiter) Wait() (proc.Result, error) { return w.res, nil }

func (r *stubRunner) LookPath(name string) (string, error) {
	if r.missing[name] {
		return "", proc.ErrMissingExecutable
	}
	return "/usr/bin/" + name, nil
}

func (r *stubRunner) Run(ctx context.Context, c proc.Command) (proc.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()

	res := r.respond(c)
	if r.fail != nil {
		if err := r.fail(c); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (r *stubRunner) Start(c proc.Command) (proc.Waiter, error) {
	res, _ := r.Run(context.Background(), c)
	return stubWaiter{res: res}, nil
}

// callTargets returns the final argument of every recorded invocation
// of the named tool.
func (r *stubRunner) callTargets(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var targets []string
	for _, c := range r.calls {
		if c.Name == name {
			targets = append(targets, c.Args[len(c.Args)-1])
		}
	}
	return targets
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService wires a Service over the stub runner with a healthy
// LAN, the internet check disabled, and deterministic target order.
func newTestService(runner proc.Runner, stdin string, out *bytes.Buffer) *Service {
	defaults := conf.Defaults{
		Result:     conf.ResultDefaults{Flat: true, Label: true},
		RequireNet: conf.NetCheck{Disabled: true},
		Gateway:    conf.Gateway{Attempts: 1, Deadline: 1},
	}

	s := NewService(testLogger(), runner, defaults, strings.NewReader(stdin), task.NewSink(out))
	s.gateway = func() (string, error) { return "192.168.1.1", nil }
	s.shuffle = func(n int, swap func(i, j int)) {}
	return s
}

// gateOK answers the LAN gate's localhost and gateway pings.
func gateOK(c proc.Command) (proc.Result, bool) {
	if c.Name != "ping" {
		return proc.Result{}, false
	}
	dest := c.Args[len(c.Args)-1]
	if dest == "localhost" || dest == "192.168.1.1" {
		return proc.Result{Name: c.Name, Args: c.Args, ExitCode: 0}, true
	}
	return proc.Result{}, false
}

func decodeResult(t *testing.T, out *bytes.Buffer) map[string]any {
	t.Helper()

	var doc map[string]any
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("result is not one JSON document: %v (%q)", err, out.String())
	}
	return doc
}
