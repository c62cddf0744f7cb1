// Package connectivity implements the two-tier preflight gate run
// before a measurement's real probes: local network reachability, then
// a race against configured internet hosts.
package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"netrics/pkg/conf"
	"netrics/pkg/netinfo"
	"netrics/pkg/proc"
	"netrics/pkg/task"
)

const (
	defaultAttempts = 3
	defaultDeadline = 5
)

// Failure is a terminal gate outcome. A nil *Failure means the gate
// passed and the measurement may run.
type Failure struct {
	Status   task.Status
	Dest     string
	Attempts int
	ExitCode int
	Reason   string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("connectivity: %s (%s)", f.Reason, f.Status)
}

// Check runs the gate with explicit dependencies; no ambient state.
type Check struct {
	Runner proc.Runner
	Logger *slog.Logger

	// Gateway supplies the default gateway address; nil means the OS
	// routing table via netinfo.
	Gateway func() (string, error)

	// Attempts bounds the per-destination ping retry loops; Deadline
	// is the ping -w deadline in seconds. Zero values take defaults.
	Attempts int
	Deadline int
}

func (c Check) attempts() int {
	if c.Attempts > 0 {
		return c.Attempts
	}
	return defaultAttempts
}

func (c Check) deadline() int {
	if c.Deadline > 0 {
		return c.Deadline
	}
	return defaultDeadline
}

func (c Check) gateway() (string, error) {
	if c.Gateway != nil {
		return c.Gateway()
	}
	return netinfo.DefaultGateway()
}

// RequireLAN checks that ping is available, the host network interface
// is up, and the default gateway answers. Failure at any step is fatal
// to the measurement.
func (c Check) RequireLAN(ctx context.Context) *Failure {
	if _, err := c.Runner.LookPath("ping"); err != nil {
		task.Critical(c.Logger, "ping executable not found")
		return &Failure{Status: task.StatusFileMissing, Reason: "ping executable not found"}
	}

	res, err := c.pingOnce(ctx, "localhost")
	if err != nil || res.ExitCode != 0 {
		task.Critical(c.Logger, "host network interface down",
			"dest", "localhost",
			"status", fmt.Sprintf("Error (%d)", res.ExitCode),
		)
		return &Failure{
			Status:   task.StatusOSError,
			Dest:     "localhost",
			ExitCode: res.ExitCode,
			Reason:   "host network interface down",
		}
	}
	c.Logger.Debug("ping ok", "dest", "localhost", "status", "OK")

	gatewayAddr, err := c.gateway()
	if err != nil {
		task.Critical(c.Logger, "default gateway not found", "error", err)
		return &Failure{Status: task.StatusOSError, Reason: "default gateway not found"}
	}

	tries, lastCode, ok := c.pingUntilReply(ctx, gatewayAddr, c.attempts())
	if !ok {
		task.Critical(c.Logger, "network gateway inaccessible",
			"dest", "gateway",
			"addr", gatewayAddr,
			"tries", tries,
			"status", fmt.Sprintf("Error (%d)", lastCode),
		)
		return &Failure{
			Status:   task.StatusNoHost,
			Dest:     gatewayAddr,
			Attempts: tries,
			ExitCode: lastCode,
			Reason:   "network gateway inaccessible",
		}
	}

	c.logAttempts("gateway reachable", gatewayAddr, tries)

	return nil
}

// RequireNet upgrades RequireLAN with an internet reachability check:
// every configured destination is probed concurrently, each retried up
// to the attempt count, and the first success wins. Only exhaustion of
// all destinations fails the gate. A single unreachable test host must
// not fail the whole measurement.
func (c Check) RequireNet(ctx context.Context, nc conf.NetCheck) *Failure {
	if failure := c.RequireLAN(ctx); failure != nil {
		return failure
	}

	if nc.Disabled || len(nc.Destinations) == 0 {
		return nil
	}

	attempts := nc.Attempts
	if attempts < 1 {
		attempts = c.attempts()
	}

	type netResult struct {
		dest  string
		tries int
		code  int
		ok    bool
	}

	// Buffered to the destination count: once a winner is found the
	// remaining goroutines still complete their bounded attempt loops
	// (reaping their children) and send without blocking; their
	// results are simply discarded.
	results := make(chan netResult, len(nc.Destinations))

	for _, dest := range nc.Destinations {
		dest := dest
		go func() {
			tries, code, ok := c.pingUntilReply(ctx, dest, attempts)
			results <- netResult{dest: dest, tries: tries, code: code, ok: ok}
		}()
	}

	for range nc.Destinations {
		r := <-results
		if r.ok {
			c.logAttempts("internet reachable", r.dest, r.tries)
			return nil
		}
	}

	task.Critical(c.Logger, "internet inaccessible",
		"dest", summarizeDests(nc.Destinations),
		"tries", attempts,
		"status", "Error",
	)

	return &Failure{
		Status:   task.StatusNoHost,
		Attempts: attempts,
		Reason:   "internet inaccessible",
	}
}

// pingOnce sends a single request with the configured deadline.
func (c Check) pingOnce(ctx context.Context, dest string) (proc.Result, error) {
	return c.Runner.Run(ctx, proc.Command{
		Name: "ping",
		Args: []string{"-c", "1", "-w", strconv.Itoa(c.deadline()), dest},
	})
}

// pingUntilReply pings dest until a single response is received or
// attempts are exhausted. Exit codes above 1 mean more than a response
// failure: the retry loop quits immediately.
func (c Check) pingUntilReply(ctx context.Context, dest string, attempts int) (tries, lastCode int, ok bool) {
	for count := 1; count <= attempts; count++ {
		res, err := c.pingOnce(ctx, dest)
		if err != nil {
			return count, -1, false
		}

		if res.ExitCode == 0 {
			return count, 0, true
		}

		lastCode = res.ExitCode

		if res.ExitCode > 1 {
			return count, lastCode, false
		}
	}

	return attempts, lastCode, false
}

// Success on the first attempt is routine; needing retries is worth a
// warning.
func (c Check) logAttempts(msg, dest string, tries int) {
	if tries == 1 {
		c.Logger.Debug(msg, "dest", dest, "tries", tries, "status", "OK")
	} else {
		c.Logger.Warn(msg, "dest", dest, "tries", tries, "status", "OK")
	}
}

func summarizeDests(dests []string) []string {
	if len(dests) < 4 {
		return dests
	}
	return append(append([]string(nil), dests[:3]...), "...")
}
