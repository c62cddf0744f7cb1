// Package measurement implements the network measurement tasks invoked
// by the external scheduler: connectivity-gated probes against
// configured destinations, parsed into structured results and written
// through the common result sink.
package measurement

import (
	"context"
	"io"
	"log/slog"
	"math/rand"

	"netrics/pkg/conf"
	"netrics/pkg/connectivity"
	"netrics/pkg/netinfo"
	"netrics/pkg/proc"
	"netrics/pkg/task"
)

// Service carries the collaborators a task needs: validated global
// defaults, the process runner, the parameter stream, the result sink
// and the persisted-state store. One Service serves one invocation.
type Service struct {
	logger   *slog.Logger
	runner   proc.Runner
	defaults conf.Defaults
	in       io.Reader
	sink     *task.Sink
	state    *task.Store

	// gateway, network and shuffle exist so tests can pin down
	// routing-table discovery, subnet lookup and fallback ordering.
	gateway func() (string, error)
	network func(iface string) (string, error)
	shuffle func(n int, swap func(i, j int))
}

func NewService(logger *slog.Logger, runner proc.Runner, defaults conf.Defaults, in io.Reader, sink *task.Sink) *Service {
	return &Service{
		logger:   logger,
		runner:   runner,
		defaults: defaults,
		in:       in,
		sink:     sink,
		state:    &task.Store{Path: defaults.StateFile},
		network:  netinfo.InterfaceNetwork,
		shuffle:  rand.Shuffle,
	}
}

func (s *Service) check() connectivity.Check {
	return connectivity.Check{
		Runner:   s.runner,
		Logger:   s.logger,
		Gateway:  s.gateway,
		Attempts: s.defaults.Gateway.Attempts,
		Deadline: s.defaults.Gateway.Deadline,
	}
}

// requireLAN gates the measurement on local network reachability.
func (s *Service) requireLAN(ctx context.Context) *connectivity.Failure {
	return s.check().RequireLAN(ctx)
}

// requireNet gates the measurement on internet reachability.
func (s *Service) requireNet(ctx context.Context) *connectivity.Failure {
	return s.check().RequireNet(ctx, s.defaults.RequireNet)
}

// readParams decodes stdin parameters over defaults already set in v.
// A validation failure is a configuration error: nothing has run yet.
func (s *Service) readParams(v any) error {
	return task.ReadParams(s.in, v)
}

func (s *Service) confError(err error) task.Status {
	task.Critical(s.logger, "input error", "error", err)
	return task.StatusConfError
}

// plan resolves a task's result-shaping options against the global
// defaults.
func (s *Service) plan(o task.ResultOptions, taskLabel string) task.ResultPlan {
	r := s.defaults.Result
	return o.Plan(r.Flat, r.Label, r.Annotate, taskLabel)
}
