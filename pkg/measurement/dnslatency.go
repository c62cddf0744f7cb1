package measurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"

	"netrics/pkg/models"
	"netrics/pkg/parse"
	"netrics/pkg/probe"
	"netrics/pkg/proc"
	"netrics/pkg/task"
)

type dnsLatencyParams struct {
	Destinations []string           `json:"destinations"`
	Server       string             `json:"server"`
	Result       task.ResultOptions `json:"result"`
}

func defaultDNSLatencyParams() dnsLatencyParams {
	return dnsLatencyParams{
		Destinations: []string{"google.com", "facebook.com", "nytimes.com"},
		Server:       "8.8.8.8",
	}
}

func (p dnsLatencyParams) validate() error {
	if len(p.Destinations) == 0 {
		return fmt.Errorf("destinations: must not be empty")
	}
	for _, dest := range p.Destinations {
		if dest == "" {
			return fmt.Errorf("destinations: empty hostname")
		}
	}
	if _, err := netip.ParseAddr(p.Server); err != nil {
		return fmt.Errorf("server: must be an IP address")
	}
	return nil
}

// DNSLatency measures query latency statistics resolving a set of
// domain names.
//
// dig runs concurrently for each configured domain name against the
// configured DNS server; the mean and maximum reported query times
// across the successful look-ups are written out.
func (s *Service) DNSLatency(ctx context.Context) task.Status {
	params := defaultDNSLatencyParams()
	if err := s.readParams(&params); err != nil {
		return s.confError(err)
	}
	if err := params.validate(); err != nil {
		return s.confError(err)
	}

	if _, err := s.runner.LookPath("dig"); err != nil {
		task.Critical(s.logger, "dig executable not found")
		return task.StatusFileMissing
	}

	if failure := s.requireNet(ctx); failure != nil {
		return failure.Status
	}

	pool := probe.Pool{Runner: s.runner, Logger: s.logger, Classify: probe.ClassifyDig}

	targets := make([]models.Destination, len(params.Destinations))
	for i, dest := range params.Destinations {
		targets[i] = models.Destination{Addr: dest, Label: dest}
	}

	outcomes := pool.Collect(targets, func(d models.Destination) proc.Command {
		return proc.Command{
			Name: "dig",
			Args: []string{"@" + params.Server, d.Addr, "+yaml"},
		}
	})

	successes, failures := probe.Partition(outcomes, func(o probe.Outcome) bool {
		return o.Category.Action == probe.Proceed
	})

	probe.LogFailures(s.logger, slog.LevelError, failures)

	if len(successes) == 0 {
		task.Critical(s.logger, "no destinations succeeded")
		return task.StatusNoHost
	}

	times := make([]float64, 0, len(successes))
	var fastest, slowest string
	for _, out := range successes {
		ms, err := parse.DigLatencyMs(out.Result.Stdout)
		if err != nil {
			var extraction *parse.ExtractionError
			if errors.As(err, &extraction) {
				task.Critical(s.logger, "latency extraction error",
					"error", extraction.Msg,
					"stdout", extraction.Stdout,
				)
			} else {
				task.Critical(s.logger, "latency extraction error", "error", err)
			}
			return task.StatusSoftwareError
		}

		if len(times) == 0 || ms < minSeen(times) {
			fastest = out.Target.Addr
		}
		if len(times) == 0 || ms > parse.Max(times) {
			slowest = out.Target.Addr
		}

		times = append(times, ms)
	}

	s.logger.Info("query latencies",
		"mean_ms", parse.Mean(times),
		"max_ms", parse.Max(times),
		"min_label", fastest,
		"max_label", slowest,
	)

	stats := map[string]any{
		"avg_ms": parse.Mean(times),
		"max_ms": parse.Max(times),
	}

	plan := s.plan(params.Result, "dns_latency")

	var shaped map[string]any
	if plan.Flat {
		shaped = task.Flatten(map[string]map[string]any{"dns_query": stats})
	} else {
		shaped = map[string]any{"dns_query": stats}
	}

	if err := s.sink.Write(shaped, plan.Label, plan.Annotate, nil); err != nil {
		task.Critical(s.logger, "result write failed", "error", err)
		return task.StatusSoftwareError
	}

	return task.StatusSuccess
}

func minSeen(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
