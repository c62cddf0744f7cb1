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

type hopsTracerouteParams struct {
	Destinations models.Destinations `json:"destinations"`
	MaxHop       int                 `json:"max_hop"`
	Tries        int                 `json:"tries"`
	Wait         int                 `json:"wait"`
	Result       task.ResultOptions  `json:"result"`
}

func defaultHopsTracerouteParams() hopsTracerouteParams {
	return hopsTracerouteParams{
		Destinations: models.DestinationList("google.com", "facebook.com", "nytimes.com"),
		MaxHop:       64,
		Tries:        5,
		Wait:         2,
	}
}

func (p hopsTracerouteParams) validate() error {
	if p.Destinations.Len() == 0 {
		return fmt.Errorf("destinations: must not be empty")
	}
	if p.MaxHop < 1 {
		return fmt.Errorf("max_hop: int must be greater than 0")
	}
	if p.Tries < 1 {
		return fmt.Errorf("tries: int must be greater than 0")
	}
	if p.Wait < 1 {
		return fmt.Errorf("wait: int must be greater than 0")
	}
	return nil
}

// HopsTraceroute traces the number of intermediary hosts between the
// client and the target destinations, using one traceroute process per
// destination in parallel.
func (s *Service) HopsTraceroute(ctx context.Context) task.Status {
	params := defaultHopsTracerouteParams()
	if err := s.readParams(&params); err != nil {
		return s.confError(err)
	}
	if err := params.validate(); err != nil {
		return s.confError(err)
	}

	if _, err := s.runner.LookPath("traceroute"); err != nil {
		task.Critical(s.logger, "traceroute executable not found")
		return task.StatusFileMissing
	}

	if failure := s.requireNet(ctx); failure != nil {
		return failure.Status
	}

	pool := probe.Pool{Runner: s.runner, Logger: s.logger, Classify: probe.ClassifyTraceroute}

	outcomes := pool.Collect(params.Destinations.All(), func(d models.Destination) proc.Command {
		// Versions of traceroute differ on their long options; the
		// short options are consistent across versions.
		return proc.Command{
			Name: "traceroute",
			Args: []string{
				"-m", strconv.Itoa(params.MaxHop),
				"-q", strconv.Itoa(params.Tries),
				"-w", strconv.Itoa(params.Wait),
				d.Addr,
			},
		}
	})

	labeled := make(map[string]int)
	var failures []probe.Outcome

	for _, out := range outcomes {
		if out.Category.Action == probe.Proceed {
			if count, ok := parse.TracerouteHopCount(out.Result.Stdout); ok {
				labeled[out.Target.Label] = count
				continue
			}
		}
		failures = append(failures, out)
	}

	probe.LogFailures(s.logger, slog.LevelError, failures)

	if len(labeled) == 0 {
		task.Critical(s.logger, "no destinations succeeded")
		return task.StatusNoHost
	}

	plan := s.plan(params.Result, "hops_to_target")

	shaped := hopShape(labeled, plan.Flat)

	if err := s.sink.Write(shaped, plan.Label, plan.Annotate, nil); err != nil {
		task.Critical(s.logger, "result write failed", "error", err)
		return task.StatusSoftwareError
	}

	return task.StatusSuccess
}
