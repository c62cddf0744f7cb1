package resolve

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"netrics/pkg/proc"
)

// fakeRunner scripts dig responses by queried host and counts the
// subprocesses launched.
type fakeRunner struct {
	stdout   map[string]string
	codes    map[string]int
	missing  bool
	launched int
}

type fakeWaiter struct {
	res proc.Result
}

func (w fakeWaiter) Wait() (proc.Result, error) { return w.res, nil }

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.missing {
		return "", proc.ErrMissingExecutable
	}
	return "/usr/bin/" + name, nil
}

func (r *fakeRunner) Start(c proc.Command) (proc.Waiter, error) {
	r.launched++
	host := c.Args[len(c.Args)-1]
	return fakeWaiter{res: proc.Result{
		Name:     c.Name,
		Args:     c.Args,
		ExitCode: r.codes[host],
		Stdout:   r.stdout[host],
	}}, nil
}

func (r *fakeRunner) Run(ctx context.Context, c proc.Command) (proc.Result, error) {
	w, err := r.Start(c)
	if err != nil {
		return proc.Result{}, err
	}
	return w.Wait()
}

func TestAddressesLiteralsRunNoSubprocess(t *testing.T) {
	runner := &fakeRunner{missing: true} // dig absent; literals must not need it

	lookups, err := Addresses([]string{"8.8.8.8", "1.1.1.1", "2001:4860:4860::8888"}, runner)
	if err != nil {
		t.Fatalf("Addresses() error = %v", err)
	}

	if runner.launched != 0 {
		t.Errorf("launched %d subprocesses for literal-only input, want 0", runner.launched)
	}

	want := []string{"8.8.8.8", "1.1.1.1", "2001:4860:4860::8888"}
	if !reflect.DeepEqual(lookups.Resolved(), want) {
		t.Errorf("Resolved() = %v, want %v", lookups.Resolved(), want)
	}
}

func TestAddressesMissingDig(t *testing.T) {
	runner := &fakeRunner{missing: true}

	_, err := Addresses([]string{"google.com"}, runner)
	if !errors.Is(err, proc.ErrMissingExecutable) {
		t.Errorf("Addresses() error = %v, want ErrMissingExecutable", err)
	}
}

func TestAddressesMixedOutcomes(t *testing.T) {
	runner := &fakeRunner{
		stdout: map[string]string{
			"google.com":   "142.250.190.46\n142.250.190.78\n",
			"alias.google": "142.250.190.46\n",
		},
		codes: map[string]int{
			"nxdomain.example": 10,
		},
	}

	hosts := []string{"google.com", "8.8.8.8", "nxdomain.example", "alias.google"}

	lookups, err := Addresses(hosts, runner)
	if err != nil {
		t.Fatalf("Addresses() error = %v", err)
	}

	if runner.launched != 3 {
		t.Errorf("launched %d digs, want 3 (the literal passes through)", runner.launched)
	}

	// only the first answer line is kept
	if got := lookups.Addr("google.com"); got != "142.250.190.46" {
		t.Errorf("Addr(google.com) = %q, want first answer", got)
	}

	if got := lookups.Code("nxdomain.example"); got != 10 {
		t.Errorf("Code(nxdomain.example) = %d, want 10", got)
	}

	if got := lookups.Unresolved(); !reflect.DeepEqual(got, []string{"nxdomain.example"}) {
		t.Errorf("Unresolved() = %v, want [nxdomain.example]", got)
	}

	// duplicate answers collapse, input order kept
	wantResolved := []string{"142.250.190.46", "8.8.8.8"}
	if got := lookups.Resolved(); !reflect.DeepEqual(got, wantResolved) {
		t.Errorf("Resolved() = %v, want %v", got, wantResolved)
	}

	wantHosts := []string{"google.com", "alias.google"}
	if got := lookups.Hosts("142.250.190.46"); !reflect.DeepEqual(got, wantHosts) {
		t.Errorf("Hosts(142.250.190.46) = %v, want %v", got, wantHosts)
	}
}
