package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"netrics/pkg/models"
	"netrics/pkg/proc"
)

type scriptedRunner struct {
	codes    map[string]int
	failHost string
	started  int
	waited   int
}

type scriptedWaiter struct {
	runner *scriptedRunner
	res    proc.Result
}

func (w *scriptedWaiter) Wait() (proc.Result, error) {
	w.runner.waited++
	return w.res, nil
}

func (r *scriptedRunner) LookPath(name string) (string, error) { return "/usr/bin/" + name, nil }

func (r *scriptedRunner) Start(c proc.Command) (proc.Waiter, error) {
	host := c.Args[len(c.Args)-1]
	if host == r.failHost {
		return nil, errors.New("fork failed")
	}
	r.started++
	return &scriptedWaiter{runner: r, res: proc.Result{
		Name:     c.Name,
		Args:     c.Args,
		ExitCode: r.codes[host],
	}}, nil
}

func (r *scriptedRunner) Run(ctx context.Context, c proc.Command) (proc.Result, error) {
	w, err := r.Start(c)
	if err != nil {
		return proc.Result{}, err
	}
	return w.Wait()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pingCommand(d models.Destination) proc.Command {
	return proc.Command{Name: "ping", Args: []string{"-c", "1", d.Addr}}
}

func TestPoolCollect(t *testing.T) {
	runner := &scriptedRunner{codes: map[string]int{
		"a.example": 0,
		"b.example": 1,
		"c.example": 2,
	}}

	pool := Pool{Runner: runner, Logger: discardLogger(), Classify: ClassifyPing}

	targets := []models.Destination{
		{Addr: "a.example", Label: "a"},
		{Addr: "b.example", Label: "b"},
		{Addr: "c.example", Label: "c"},
	}

	outcomes := pool.Collect(targets, pingCommand)

	if len(outcomes) != 3 {
		t.Fatalf("Collect() returned %d outcomes, want 3", len(outcomes))
	}
	if runner.started != 3 || runner.waited != 3 {
		t.Errorf("started/waited = %d/%d, want 3/3", runner.started, runner.waited)
	}

	wantActions := []Action{Proceed, Degrade, Discard}
	for i, out := range outcomes {
		if out.Target != targets[i] {
			t.Errorf("outcome %d target = %v, want %v (input order)", i, out.Target, targets[i])
		}
		if out.Category.Action != wantActions[i] {
			t.Errorf("outcome %d action = %v, want %v", i, out.Category.Action, wantActions[i])
		}
	}
}

func TestPoolCollectStartFailure(t *testing.T) {
	runner := &scriptedRunner{
		codes:    map[string]int{"a.example": 0, "c.example": 0},
		failHost: "b.example",
	}

	pool := Pool{Runner: runner, Logger: discardLogger(), Classify: ClassifyPing}

	targets := []models.Destination{
		{Addr: "a.example"},
		{Addr: "b.example"},
		{Addr: "c.example"},
	}

	outcomes := pool.Collect(targets, pingCommand)

	// the failed launch must not prevent joining the others
	if runner.waited != 2 {
		t.Errorf("waited = %d, want 2", runner.waited)
	}

	if outcomes[1].Err == nil || outcomes[1].Category.Action != Abort {
		t.Errorf("failed launch outcome = %+v, want abort with error", outcomes[1])
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Error("healthy launches carried an error")
	}
}

func TestPartition(t *testing.T) {
	outcomes := []Outcome{
		{Category: Category{Action: Proceed}},
		{Category: Category{Action: Discard}},
		{Category: Category{Action: Degrade}},
	}

	successes, failures := Partition(outcomes, func(o Outcome) bool {
		return o.Category.Action == Proceed || o.Category.Action == Degrade
	})

	if len(successes) != 2 || len(failures) != 1 {
		t.Errorf("Partition() = %d successes, %d failures, want 2 and 1",
			len(successes), len(failures))
	}
}
