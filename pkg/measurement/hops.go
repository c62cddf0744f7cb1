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

type hopsParams struct {
	Destinations models.Destinations `json:"destinations"`
	Attempts     int                 `json:"attempts"`
	Timeout      int                 `json:"timeout"`
	Result       task.ResultOptions  `json:"result"`
}

func defaultHopsParams() hopsParams {
	return hopsParams{
		Destinations: models.DestinationList("google.com", "facebook.com", "nytimes.com"),
		Attempts:     1,
		Timeout:      5,
	}
}

func (p hopsParams) validate() error {
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

func scamperTraceArgs(attempts, timeout int, targets []string) []string {
	args := []string{
		"-O", "json",
		"-c", fmt.Sprintf("trace -Q -P icmp-paris -q %d -w %d", attempts, timeout),
	}
	for _, target := range targets {
		args = append(args, "-i", target)
	}
	return args
}

// Hops traces the number of intermediary hosts between the client and
// the target destinations.
//
// Destinations given by domain name are resolved to IPs first; one
// scamper process then paris-traceroutes all targets, and the hop count
// of each completed trace is written out.
func (s *Service) Hops(ctx context.Context) task.Status {
	params := defaultHopsParams()
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

	res, err := s.runner.Run(ctx, proc.Command{
		Name: "scamper",
		Args: scamperTraceArgs(params.Attempts, params.Timeout, targets),
	})
	if err != nil || probe.ClassifyScamper(res.ExitCode).Action != probe.Proceed {
		// scamper shouldn't really error this way: this is serious
		task.Critical(s.logger, "scamper trace failed",
			"dests", targets,
			"status", fmt.Sprintf("Error (%d)", res.ExitCode),
			"error", probe.ClassifyScamper(res.ExitCode).Label,
			"stdout", res.Stdout,
			"stderr", res.Stderr,
		)
		return task.StatusSoftwareError
	}

	traces := parse.ScamperTraces(res.Stdout)

	accounted := make(map[string]bool, len(traces))
	for _, trace := range traces {
		accounted[trace.Dst] = true
	}

	var unaccounted []string
	for _, target := range targets {
		if !accounted[target] {
			unaccounted = append(unaccounted, target)
		}
	}
	if len(unaccounted) > 0 {
		// we/scamper shouldn't error this way: this is serious
		task.Critical(s.logger, "could not account for destinations in results",
			"dests", unaccounted,
		)
		return task.StatusSoftwareError
	}

	hopCounts := make(map[string]int)
	failTotal := 0
	for _, trace := range traces {
		if !trace.Completed() {
			failTotal++
		}
	}

	failCount := 0
	for _, trace := range traces {
		if trace.Completed() {
			hopCounts[trace.Dst] = trace.HopCount
			continue
		}
		failCount++
		s.logger.Error("trace incomplete",
			"dest", trace.Dst,
			"failure", fmt.Sprintf("(%d/%d)", failCount, failTotal),
			"hop_count", trace.HopCount,
			"stop_reason", trace.StopReason,
		)
	}

	if len(hopCounts) == 0 {
		task.Critical(s.logger, "no destinations succeeded")
		return task.StatusNoHost
	}

	// Key results back to the configured hosts, then their labels.
	labeled := make(map[string]int, len(hopCounts))
	for targetIP, count := range hopCounts {
		hosts := lookups.Hosts(targetIP)

		if len(hosts) > 1 {
			s.logger.Warn("destination given by multiple hostnames", "dest", targetIP)
		}

		labeled[params.Destinations.Label(hosts[0])] = count
	}

	plan := s.plan(params.Result, "hops_to_target")

	shaped := hopShape(labeled, plan.Flat)

	if err := s.sink.Write(shaped, plan.Label, plan.Annotate, nil); err != nil {
		task.Critical(s.logger, "result write failed", "error", err)
		return task.StatusSoftwareError
	}

	return task.StatusSuccess
}

// hopShape is shared with the traceroute variant of this measurement.
func hopShape(labeled map[string]int, flat bool) map[string]any {
	shaped := make(map[string]any, len(labeled))
	for label, count := range labeled {
		if flat {
			shaped["hops_to_"+label] = count
		} else {
			shaped[label] = map[string]any{"hops": count}
		}
	}
	return shaped
}
