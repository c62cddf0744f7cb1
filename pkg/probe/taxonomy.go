// Package probe fans measurement processes out across destinations and
// classifies their exit codes. The taxonomy here is the canonical
// reference for measurement-level error handling; it is shared, never
// duplicated per measurement.
package probe

// Action is what a classified exit code means for the measurement.
type Action int

const (
	// Proceed: use the result as-is.
	Proceed Action = iota
	// Degrade: use the result, accepting partial loss.
	Degrade
	// Retry: the destination may answer on another attempt.
	Retry
	// Discard: drop this destination; others may still proceed.
	Discard
	// Abort: the whole measurement cannot continue.
	Abort
)

// Category is the semantic outcome of one external tool exit code.
type Category struct {
	Code   int
	Label  string
	Action Action
}

// ClassifyPing maps ping exit codes. Code 1 means the host sent no
// reply to some or all packets, which is not fatal; code 2 is a
// LAN-level error whose output carries no parseable statistics; any
// other code is not a ping outcome at all.
func ClassifyPing(code int) Category {
	switch code {
	case 0:
		return Category{Code: code, Label: "success", Action: Proceed}
	case 1:
		return Category{Code: code, Label: "no reply", Action: Degrade}
	case 2:
		return Category{Code: code, Label: "transmission error", Action: Discard}
	}
	return Category{Code: code, Label: "unrecognized error", Action: Abort}
}

// ClassifyDig maps dig exit codes.
func ClassifyDig(code int) Category {
	switch code {
	case 0:
		return Category{Code: code, Label: "success", Action: Proceed}
	case 1:
		return Category{Code: code, Label: "usage error", Action: Discard}
	case 8:
		return Category{Code: code, Label: "couldn't open batch file", Action: Discard}
	case 9:
		return Category{Code: code, Label: "no reply from server", Action: Retry}
	case 10:
		return Category{Code: code, Label: "internal error", Action: Discard}
	}
	return Category{Code: code, Label: "<unidentified>", Action: Discard}
}

// ClassifyScamper maps scamper exit codes. Scamper should not fail at
// all once running: 255 is a configuration error and anything else
// nonzero is treated as fatal to the measurement.
func ClassifyScamper(code int) Category {
	switch code {
	case 0:
		return Category{Code: code, Label: "success", Action: Proceed}
	case 255:
		return Category{Code: code, Label: "configuration error", Action: Abort}
	}
	return Category{Code: code, Label: "error", Action: Abort}
}

// ClassifyTraceroute maps traceroute exit codes: only a clean exit
// yields parseable hops, anything else discards the destination.
func ClassifyTraceroute(code int) Category {
	if code == 0 {
		return Category{Code: code, Label: "success", Action: Proceed}
	}
	return Category{Code: code, Label: "error", Action: Discard}
}
