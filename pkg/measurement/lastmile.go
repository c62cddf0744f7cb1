package measurement

import (
	"context"
	"fmt"

	"netrics/pkg/models"
	"netrics/pkg/parse"
	"netrics/pkg/probe"
	"netrics/pkg/proc"
	"netrics/pkg/resolve"
	"netrics/pkg/task"
)

type lastMileParams struct {
	Destinations models.Destinations `json:"destinations"`
	Attempts     int                 `json:"attempts"`
	Timeout      int                 `json:"timeout"`
	Include      lastMileInclude     `json:"include"`
	Result       task.ResultOptions  `json:"result"`
}

type lastMileInclude struct {
	LastMileIP bool `json:"last_mile_ip"`
	SourceIP   bool `json:"source_ip"`
}

func defaultLastMileParams() lastMileParams {
	return lastMileParams{
		Destinations: models.DestinationMap(
			models.Destination{Addr: "8.8.8.8", Label: "Google_DNS"},
			models.Destination{Addr: "1.1.1.1", Label: "Cloudflare_DNS"},
		),
		Attempts: 3,
		Timeout:  5,
	}
}

func (p lastMileParams) validate() error {
	if p.Destinations.Len() == 0 {
		return fmt.Errorf("destinations: must not be empty")
	}
	if p.Attempts < 1 {
		return fmt.Errorf("attempts: int must be greater than 0")
	}
	if p.Timeout < 0 {
		return fmt.Errorf("timeout: int seconds must not be less than 0")
	}
	return nil
}

// LastMile measures latency to the "last mile" host via scamper.
//
// A scamper trace runs against one resolved target at a time, in
// shuffled order, falling back to the next target only after the
// previous one yielded no usable trace; only one winning result is
// needed, so sequential fallback avoids wasted parallel work. The first
// hop outside the client's private network is the last mile, and its
// round-trip statistics are written out.
func (s *Service) LastMile(ctx context.Context) task.Status {
	params := defaultLastMileParams()
	if err := s.readParams(&params); err != nil {
		return s.confError(err)
	}
	if err := params.validate(); err != nil {
		return s.confError(err)
	}

	if _, err := s.runner.LookPath("scamper"); err != nil {
		task.Critical(s.logger, "scamper executable not found")
		return task.StatusFileMissing
	}

	if failure := s.requireNet(ctx); failure != nil {
		return failure.Status
	}

	lookups, err := resolve.Addresses(params.Destinations.Addrs(), s.runner)
	if err != nil {
		task.Critical(s.logger, "dig executable not found")
		return task.StatusFileMissing
	}

	for _, host := range lookups.Unresolved() {
		s.logger.Error("domain look-up failure",
			"host", host,
			"status", lookups.Code(host),
		)
	}

	targets := lookups.Resolved()
	if len(targets) == 0 {
		task.Critical(s.logger, "no addresses to query",
			"errors", len(lookups.Unresolved()),
		)
		return task.StatusNoHost
	}

	s.shuffle(len(targets), func(i, j int) {
		targets[i], targets[j] = targets[j], targets[i]
	})

	var lastMile models.LastMile
	found := false

	for _, targetIP := range targets {
		res, err := s.runner.Run(ctx, proc.Command{
			Name: "scamper",
			Args: scamperTraceArgs(params.Attempts, params.Timeout, []string{targetIP}),
		})
		if err != nil || probe.ClassifyScamper(res.ExitCode).Action != probe.Proceed {
			// scamper shouldn't really error this way: this is serious
			task.Critical(s.logger, "scamper trace failed",
				"dest", targetIP,
				"status", fmt.Sprintf("Error (%d)", res.ExitCode),
				"error", probe.ClassifyScamper(res.ExitCode).Label,
				"stdout", res.Stdout,
				"stderr", res.Stderr,
			)
			return task.StatusSoftwareError
		}

		traces := parse.ScamperTraces(res.Stdout)

		if len(traces) == 1 {
			trace := traces[0]

			if trace.StopReason != "COMPLETED" {
				s.logger.Warn("trace stopped short",
					"dest", trace.Dst,
					"count", trace.ProbeCount,
					"stop_reason", trace.StopReason,
				)
			}

			if lm, ok := trace.LastMile(); ok {
				lastMile = lm
				found = true
				break
			}
		}

		// No usable result from this target: fall back to the next.
		s.logger.Error("no result identified",
			"dest", targetIP,
			"stdout", res.Stdout,
			"stderr", res.Stderr,
		)
	}

	if !found {
		task.Critical(s.logger, "all queries failed",
			"dests", targets,
			"status", "Error",
		)
		return task.StatusNoHost
	}

	results := map[string]any{
		"last_mile_tr_rtt_ms":        lastMile.RTTs,
		"last_mile_tr_rtt_min_ms":    lastMile.Min,
		"last_mile_tr_rtt_median_ms": lastMile.Median,
		"last_mile_tr_rtt_max_ms":    lastMile.Max,
		"last_mile_tr_rtt_mdev_ms":   lastMile.Mdev,
	}

	if params.Include.LastMileIP {
		results["last_mile_tr_addr"] = lastMile.Addr
	}
	if params.Include.SourceIP {
		results["last_mile_tr_src"] = lastMile.Src
	}

	hosts := lookups.Hosts(lastMile.Dst)
	if len(hosts) > 1 {
		s.logger.Warn("destination given by multiple hostnames", "dest", lastMile.Dst)
	}

	targetLabel := params.Destinations.Label(hosts[0])

	plan := s.plan(params.Result, "last_mile_rtt")

	var shaped map[string]any
	if plan.Flat {
		// The raw RTT list has no place in a flattened result.
		delete(results, "last_mile_tr_rtt_ms")

		shaped = task.Flatten(map[string]map[string]any{targetLabel: results})
	} else {
		shaped = map[string]any{targetLabel: results}
	}

	if err := s.sink.Write(shaped, plan.Label, plan.Annotate, nil); err != nil {
		task.Critical(s.logger, "result write failed", "error", err)
		return task.StatusSoftwareError
	}

	return task.StatusSuccess
}
