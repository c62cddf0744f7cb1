// Package speedtest puts the bandwidth-test CLI family behind one
// interface: each client knows its command line, how to read its JSON
// output, and which stderr noise is benign.
package speedtest

import (
	"fmt"

	"netrics/pkg/models"
	"netrics/pkg/proc"
)

// Kind selects the bandwidth client implementation.
type Kind string

const (
	KindOokla Kind = "ookla"
	KindNDT7  Kind = "ndt7"
)

// Config carries the client options common to the family.
type Config struct {
	// Exec is the executable name or absolute path; empty takes the
	// client's conventional name.
	Exec string

	// AcceptLicense must be true for the Ookla client: its license
	// terms have to be accepted explicitly.
	AcceptLicense bool
}

// Client is one bandwidth-test CLI.
type Client interface {
	// Name is the result key prefix for this client.
	Name() string

	// Command is the invocation to run; the measurement applies the
	// configured timeout.
	Command() proc.Command

	// ParseSummary reads the client's stdout. A nil summary means the
	// output carried no results.
	ParseSummary(stdout string) *models.SpeedtestSummary

	// QuietStderr reports whether stderr content is benign banner
	// noise rather than an error worth logging.
	QuietStderr(stderr string) bool
}

// New builds the named client.
func New(kind Kind, cfg Config) (Client, error) {
	switch kind {
	case KindOokla:
		if !cfg.AcceptLicense {
			return nil, fmt.Errorf("accept_license: Ookla CLI license must be " +
				"explicitly accepted by specifying the value true")
		}
		return newOoklaClient(cfg), nil
	case KindNDT7:
		return newNDT7Client(cfg), nil
	}
	return nil, fmt.Errorf("unsupported speedtest client: %s", kind)
}
