package measurement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"netrics/pkg/models"
	"netrics/pkg/parse"
	"netrics/pkg/probe"
	"netrics/pkg/proc"
	"netrics/pkg/task"
)

type pingParams struct {
	Destinations models.Destinations `json:"destinations"`
	Count        int                 `json:"count"`
	Interval     float64             `json:"interval"`
	Deadline     int                 `json:"deadline"`
	Result       task.ResultOptions  `json:"result"`
}

func defaultPingParams() pingParams {
	return pingParams{
		Destinations: models.DestinationList("google.com", "facebook.com", "nytimes.com"),
		Count:        10,
		Interval:     0.25,
		Deadline:     5,
	}
}

func (p pingParams) validate() error {
	if p.Destinations.Len() == 0 {
		return fmt.Errorf("destinations: must not be empty")
	}
	if p.Count < 1 {
		return fmt.Errorf("count: int must be greater than 0")
	}
	if p.Interval < 0.002 {
		return fmt.Errorf("interval: seconds must not be less than 2ms")
	}
	if p.Deadline < 0 {
		return fmt.Errorf("deadline: int seconds must not be less than 0")
	}
	return nil
}

// Ping measures ping latency to the configured hosts.
//
// The local network is checked first to ensure operation. Pings are
// then executed, in parallel, to each configured destination; outputs
// are parsed into structured results and written out according to the
// result options.
func (s *Service) Ping(ctx context.Context) task.Status {
	params := defaultPingParams()
	if err := s.readParams(&params); err != nil {
		return s.confError(err)
	}
	if err := params.validate(); err != nil {
		return s.confError(err)
	}

	if failure := s.requireLAN(ctx); failure != nil {
		return failure.Status
	}

	pool := probe.Pool{Runner: s.runner, Logger: s.logger, Classify: probe.ClassifyPing}

	outcomes := pool.Collect(params.Destinations.All(), func(d models.Destination) proc.Command {
		return proc.Command{
			Name: "ping",
			Args: []string{
				"-c", strconv.Itoa(params.Count),
				"-i", strconv.FormatFloat(params.Interval, 'f', -1, 64),
				"-w", strconv.Itoa(params.Deadline),
				d.Addr,
			},
		}
	})

	// Exit codes ping itself never produces mean something is very
	// wrong with the invocation, not the network.
	_, unrecognized := probe.Partition(outcomes, func(o probe.Outcome) bool {
		return o.Category.Action != probe.Abort
	})
	if len(unrecognized) > 0 {
		probe.LogFailures(s.logger, slog.LevelError, unrecognized)
		return task.StatusSoftwareError
	}

	successes, failures := probe.Partition(outcomes, func(o probe.Outcome) bool {
		return o.Category.Action == probe.Proceed || o.Category.Action == probe.Degrade
	})

	statuses := make(map[string]int)
	for _, out := range outcomes {
		statuses[fmt.Sprintf("%d", out.Result.ExitCode)]++
	}
	s.logger.Info("pings complete", "dest-status", statuses)

	if len(failures) > 0 {
		probe.LogFailures(s.logger, slog.LevelError, failures)
	}

	if len(successes) == 0 {
		task.Critical(s.logger, "no destinations succeeded")
		return task.StatusNoHost
	}

	results := make(map[string]map[string]any, len(successes))
	for _, out := range successes {
		results[out.Target.Label] = parse.Ping(out.Result.Stdout).Map()
	}

	plan := s.plan(params.Result, "ping_latency")

	var shaped map[string]any
	if plan.Flat {
		shaped = task.Flatten(results)
	} else {
		shaped = make(map[string]any, len(results))
		for label, stats := range results {
			shaped[label] = stats
		}
	}

	if err := s.sink.Write(shaped, plan.Label, plan.Annotate, nil); err != nil {
		task.Critical(s.logger, "result write failed", "error", err)
		return task.StatusSoftwareError
	}

	return task.StatusSuccess
}
