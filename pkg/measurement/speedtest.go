package measurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"netrics/pkg/proc"
	"netrics/pkg/speedtest"
	"netrics/pkg/task"
)

type speedtestParams struct {
	Client        string             `json:"client"`
	Exec          string             `json:"exec"`
	Timeout       float64            `json:"timeout"`
	AcceptLicense bool               `json:"accept_license"`
	Result        task.ResultOptions `json:"result"`
}

func defaultSpeedtestParams() speedtestParams {
	return speedtestParams{
		Client:  string(speedtest.KindOokla),
		Timeout: 45,
	}
}

func (p speedtestParams) validate() error {
	if p.Timeout < 0 {
		return fmt.Errorf("timeout: seconds greater than zero or zero to disable")
	}
	return nil
}

// Speedtest measures internet bandwidth via the configured CLI client
// (the Ookla speedtest binary or M-Lab's ndt7 client).
//
// Should the test not return within the timeout, the child is killed
// and a distinct timeout status is reported; a zero timeout disables
// the limit. Besides the bandwidth metrics, results are extended with
// test_bytes_consumed at the top level of the written document,
// outside the test's label.
func (s *Service) Speedtest(ctx context.Context) task.Status {
	params := defaultSpeedtestParams()
	if err := s.readParams(&params); err != nil {
		return s.confError(err)
	}
	if err := params.validate(); err != nil {
		return s.confError(err)
	}

	client, err := speedtest.New(speedtest.Kind(params.Client), speedtest.Config{
		Exec:          params.Exec,
		AcceptLicense: params.AcceptLicense,
	})
	if err != nil {
		return s.confError(err)
	}

	cmd := client.Command()

	if _, err := s.runner.LookPath(cmd.Name); err != nil {
		task.Critical(s.logger, "speedtest executable not found", "exec", cmd.Name)
		return task.StatusFileMissing
	}

	if failure := s.requireNet(ctx); failure != nil {
		return failure.Status
	}

	cmd.Timeout = time.Duration(params.Timeout * float64(time.Second))

	started := time.Now()
	res, err := s.runner.Run(ctx, cmd)
	if err != nil {
		if errors.Is(err, proc.ErrTimeout) {
			task.Critical(s.logger, "speedtest timed out",
				"cmd", cmd.Name,
				"elapsed", time.Since(started).Seconds(),
				"timeout", params.Timeout,
			)
			return task.StatusTimeout
		}
		task.Critical(s.logger, "speedtest run failed", "cmd", cmd.Name, "error", err)
		return task.StatusOSError
	}

	summary := client.ParseSummary(res.Stdout)
	if summary == nil {
		task.Critical(s.logger, "no results",
			"status", fmt.Sprintf("Error (%d)", res.ExitCode),
			"stdout", res.Stdout,
			"stderr", res.Stderr,
		)
		return task.StatusNoHost
	}

	if res.Stderr != "" && !client.QuietStderr(res.Stderr) {
		s.logger.Error("results despite errors",
			"status", fmt.Sprintf("Error (%d)", res.ExitCode),
			"stdout", res.Stdout,
			"stderr", res.Stderr,
		)
	}

	s.logger.Info("speedtest complete",
		"client", client.Name(),
		"download", summary.Values["download"],
		"upload", summary.Values["upload"],
		"bytes_consumed", summary.BytesConsumed,
	)

	prefix := "speedtest_" + client.Name()

	plan := s.plan(params.Result, prefix)

	var shaped map[string]any
	if plan.Flat {
		shaped = task.Flatten(map[string]map[string]any{prefix: summary.Values})
	} else {
		shaped = map[string]any{prefix: summary.Values}
	}

	var extend map[string]any
	if summary.HasBytes {
		extend = map[string]any{"test_bytes_consumed": summary.BytesConsumed}
	}

	if err := s.sink.Write(shaped, plan.Label, plan.Annotate, extend); err != nil {
		task.Critical(s.logger, "result write failed", "error", err)
		return task.StatusSoftwareError
	}

	return task.StatusSuccess
}
