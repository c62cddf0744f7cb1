package parse

import (
	"regexp"
	"strconv"
	"strings"

	"netrics/pkg/models"
)

// Versions of traceroute differ on their long options but agree on
// this output shape: hop number, then up to three hostname/RTT pairs,
// with the resolved IP in parentheses when names are printed.
var tracerouteHopPattern = regexp.MustCompile(
	`^\s*` +
		`(\d+)\s+` +
		`(\S+)\s+(\(([.\d]+)\)\s+)?` +
		`([.\d]+)\s*ms\s+` +
		`((\S+)\s+(\(([.\d]+)\)\s+)?)?` +
		`([.\d]+)\s*ms\s+` +
		`((\S+)\s+(\(([.\d]+)\)\s+)?)?` +
		`([.\d]+)\s*ms\s*$`)

// Title lines and all-asterisk no-response lines are expected and
// skipped without comment.
var tracerouteOtherPattern = regexp.MustCompile(
	`^(traceroute to .+|\s*\d+\s+\*\s+\*\s+\*\s*)$`)

// TracerouteHops scans traceroute output line by line. Recognized hop
// lines become TraceHop records; title and no-response lines are
// skipped; any other non-empty line is returned as an anomaly for
// warning-level logging, without aborting the parse.
func TracerouteHops(output string) (hops []models.TraceHop, anomalies []string) {
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}

		m := tracerouteHopPattern.FindStringSubmatch(line)
		if m == nil {
			if !tracerouteOtherPattern.MatchString(line) {
				anomalies = append(anomalies, line)
			}
			continue
		}

		hopNumber, _ := strconv.Atoi(m[1])

		addr := m[2]
		if m[4] != "" {
			addr = m[4]
		}

		hops = append(hops, models.TraceHop{
			Hop:  hopNumber,
			Addr: addr,
			RTTs: []float64{parseFloat(m[5]), parseFloat(m[10]), parseFloat(m[15])},
		})
	}

	return hops, anomalies
}

// TracerouteHopCount extracts the destination's hop number from the
// last line of traceroute output. The second value is false when no
// count could be determined (empty output, non-numeric first column).
func TracerouteHopCount(output string) (int, bool) {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")

	last := strings.TrimSpace(lines[len(lines)-1])

	first, _, found := strings.Cut(last, " ")
	if !found {
		return 0, false
	}

	count, err := strconv.Atoi(first)
	if err != nil {
		return 0, false
	}

	return count, true
}
