package measurement

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"netrics/pkg/models"
	"netrics/pkg/netinfo"
	"netrics/pkg/parse"
	"netrics/pkg/proc"
	"netrics/pkg/task"
)

type lastMileTracerouteParams struct {
	Destinations models.Destinations `json:"destinations"`
	Count        int                 `json:"count"`
	Interval     float64             `json:"interval"`
	Deadline     int                 `json:"deadline"`
	Result       task.ResultOptions  `json:"result"`
}

func defaultLastMileTracerouteParams() lastMileTracerouteParams {
	return lastMileTracerouteParams{
		Destinations: models.DestinationMap(
			models.Destination{Addr: "8.8.8.8", Label: "Google_DNS"},
			models.Destination{Addr: "1.1.1.1", Label: "Cloudflare_DNS"},
		),
		Count:    10,
		Interval: 0.25,
		Deadline: 5,
	}
}

func (p lastMileTracerouteParams) validate() error {
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

// lastMileHop is the traceroute-derived last mile: the first hop with a
// public address and its three sorted round-trip times.
type lastMileHop struct {
	endpoint string
	addr     string
	min      float64
	median   float64
	max      float64
}

// extractLastMile scans parsed hops for the first public address. The
// second value is false when no public hop exists or a hop address is
// not an IP literal.
func extractLastMile(endpoint string, hops []models.TraceHop) (lastMileHop, bool) {
	for _, hop := range hops {
		private, err := netinfo.IsPrivate(hop.Addr)
		if err != nil {
			return lastMileHop{}, false
		}
		if private {
			continue
		}

		rtts := append([]float64(nil), hop.RTTs...)
		sort.Float64s(rtts)

		return lastMileHop{
			endpoint: endpoint,
			addr:     hop.Addr,
			min:      rtts[0],
			median:   rtts[1],
			max:      rtts[2],
		}, true
	}

	return lastMileHop{}, false
}

// LastMileTraceroute measures latency to the "last mile" host via
// traceroute and ping.
//
// Targets are tried sequentially in shuffled order. For the first
// target whose trace yields a public hop, that hop is also pinged and
// both result sets are written out together.
func (s *Service) LastMileTraceroute(ctx context.Context) task.Status {
	params := defaultLastMileTracerouteParams()
	if err := s.readParams(&params); err != nil {
		return s.confError(err)
	}
	if err := params.validate(); err != nil {
		return s.confError(err)
	}

	// ping availability is checked by the gate
	if _, err := s.runner.LookPath("traceroute"); err != nil {
		task.Critical(s.logger, "traceroute executable not found")
		return task.StatusFileMissing
	}

	if failure := s.requireNet(ctx); failure != nil {
		return failure.Status
	}

	targets := append([]models.Destination(nil), params.Destinations.All()...)
	s.shuffle(len(targets), func(i, j int) {
		targets[i], targets[j] = targets[j], targets[i]
	})

	var (
		lastMile  lastMileHop
		pingStats models.PingStats
		found     bool
	)

	for _, target := range targets {
		traceRes, err := s.runner.Run(ctx, proc.Command{
			Name: "traceroute",
			Args: []string{target.Addr},
		})
		if err != nil || traceRes.ExitCode != 0 {
			s.logger.Error("traceroute failed",
				"dest", target.Addr,
				"status", fmt.Sprintf("Error (%d)", traceRes.ExitCode),
				"stdout", traceRes.Stdout,
				"stderr", traceRes.Stderr,
			)
			continue // fall back to next (if any)
		}

		hops, anomalies := parse.TracerouteHops(traceRes.Stdout)
		for _, line := range anomalies {
			s.logger.Warn("unexpected traceroute output line",
				"dest", target.Addr,
				"line", line,
			)
		}

		lm, ok := extractLastMile(target.Addr, hops)
		if !ok {
			s.logger.Error("failed to extract last mile ip from traceroute output",
				"dest", target.Addr,
				"stdout", traceRes.Stdout,
				"stderr", traceRes.Stderr,
			)
			continue
		}

		pingRes, err := s.runner.Run(ctx, proc.Command{
			Name: "ping",
			Args: []string{
				"-c", strconv.Itoa(params.Count),
				"-i", strconv.FormatFloat(params.Interval, 'f', -1, 64),
				"-w", strconv.Itoa(params.Deadline),
				lm.addr,
			},
		})
		if err != nil || pingRes.ExitCode > 1 {
			task.Critical(s.logger, "last mile ping failure",
				"dest", lm.addr,
				"status", fmt.Sprintf("Error (%d)", pingRes.ExitCode),
				"stdout", pingRes.Stdout,
				"stderr", pingRes.Stderr,
			)
			return task.StatusNoHost
		}

		lastMile = lm
		pingStats = parse.Ping(pingRes.Stdout)
		found = true
		break
	}

	if !found {
		dests := make([]string, len(targets))
		for i, target := range targets {
			dests[i] = target.Addr
		}
		task.Critical(s.logger, "all queries failed",
			"dests", dests,
			"status", "Error",
		)
		return task.StatusNoHost
	}

	results := map[string]any{
		"last_mile_tr_rtt_min_ms":    lastMile.min,
		"last_mile_tr_rtt_median_ms": lastMile.median,
		"last_mile_tr_rtt_max_ms":    lastMile.max,
	}
	for key, value := range pingStats.Map() {
		results["last_mile_ping_"+key] = value
	}

	targetLabel := params.Destinations.Label(lastMile.endpoint)

	plan := s.plan(params.Result, "last_mile_rtt")

	var shaped map[string]any
	if plan.Flat {
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
