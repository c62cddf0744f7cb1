package probe

import (
	"context"
	"fmt"
	"log/slog"

	"netrics/pkg/models"
	"netrics/pkg/proc"
)

// Outcome is the uniform per-destination result of one probe process.
type Outcome struct {
	Target   models.Destination
	Result   proc.Result
	Category Category
	Err      error
}

// Pool launches one probe process per destination and collects every
// outcome: all starts are issued before any join, so total wall-clock
// time is bounded by the slowest probe.
type Pool struct {
	Runner   proc.Runner
	Logger   *slog.Logger
	Classify func(code int) Category
}

// Collect fans out over targets with the command built per destination,
// then waits for all. Processes that were started are always joined,
// even when a later start fails, so no child is leaked.
func (p Pool) Collect(targets []models.Destination, build func(models.Destination) proc.Command) []Outcome {
	type launch struct {
		target models.Destination
		waiter proc.Waiter
		err    error
	}

	launches := make([]launch, 0, len(targets))
	for _, target := range targets {
		w, err := p.Runner.Start(build(target))
		launches = append(launches, launch{target: target, waiter: w, err: err})
	}

	outcomes := make([]Outcome, 0, len(launches))
	for _, l := range launches {
		if l.err != nil {
			outcomes = append(outcomes, Outcome{
				Target:   l.target,
				Category: Category{Code: -1, Label: "launch failure", Action: Abort},
				Err:      l.err,
			})
			continue
		}

		res, err := l.waiter.Wait()
		out := Outcome{Target: l.target, Result: res, Err: err}
		if err != nil {
			out.Category = Category{Code: res.ExitCode, Label: "launch failure", Action: Abort}
		} else {
			out.Category = p.Classify(res.ExitCode)
		}
		outcomes = append(outcomes, out)
	}

	return outcomes
}

// Partition splits outcomes into successes and failures by ok.
func Partition(outcomes []Outcome, ok func(Outcome) bool) (successes, failures []Outcome) {
	for _, out := range outcomes {
		if ok(out) {
			successes = append(successes, out)
		} else {
			failures = append(failures, out)
		}
	}
	return successes, failures
}

// LogFailures records failed outcomes at the given level: the first
// three in full detail, the remainder summarized to bound log volume.
func LogFailures(logger *slog.Logger, level slog.Level, failures []Outcome) {
	total := len(failures)

	for i, failure := range failures {
		if i == 3 {
			logger.Log(context.Background(), level, "probe failed",
				"dest", "...",
				"status", "Error (...)",
				"failure", fmt.Sprintf("(.../%d)", total),
				"stdout", "...",
				"stderr", "...",
			)
			break
		}

		logger.Log(context.Background(), level, "probe failed",
			"dest", failure.Target.Addr,
			"status", fmt.Sprintf("Error (%d)", failure.Result.ExitCode),
			"error", failure.Category.Label,
			"failure", fmt.Sprintf("(%d/%d)", i+1, total),
			"stdout", failure.Result.Stdout,
			"stderr", failure.Result.Stderr,
		)
	}
}
