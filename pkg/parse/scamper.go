package parse

import (
	"encoding/json"
	"strings"

	"netrics/pkg/models"
	"netrics/pkg/netinfo"
)

// ScamperHop is one probe response within a scamper trace record.
type ScamperHop struct {
	Addr     string  `json:"addr"`
	ProbeTTL int     `json:"probe_ttl"`
	RTT      float64 `json:"rtt"`
}

// ScamperTrace is one JSON-lines record of type "trace" from
// scamper -O json output.
type ScamperTrace struct {
	Type       string       `json:"type"`
	Dst        string       `json:"dst"`
	Src        string       `json:"src"`
	StopReason string       `json:"stop_reason"`
	HopCount   int          `json:"hop_count"`
	ProbeCount int          `json:"probe_count"`
	Hops       []ScamperHop `json:"hops"`
}

// ScamperTraces decodes scamper's JSON-lines output, keeping only
// well-formed objects of record type "trace". Any other line (cycle
// markers, malformed JSON) is skipped.
func ScamperTraces(output string) []ScamperTrace {
	var traces []ScamperTrace

	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		var trace ScamperTrace
		if err := json.Unmarshal([]byte(line), &trace); err != nil {
			continue
		}
		if trace.Type != "trace" {
			continue
		}

		traces = append(traces, trace)
	}

	return traces
}

// Completed reports whether the trace actually reached its destination:
// scamper stopped because it completed, the final hop answered from the
// destination address, and that hop's probe TTL accounts for the
// recorded hop count.
func (t ScamperTrace) Completed() bool {
	if len(t.Hops) == 0 {
		return false
	}

	last := t.Hops[len(t.Hops)-1]

	return t.StopReason == "COMPLETED" &&
		last.Addr == t.Dst &&
		last.ProbeTTL == t.HopCount
}

// LastMile locates the first hop group beyond the client's private
// address space and derives its round-trip statistics. Returns false
// when every responding hop is private, or an address is unparsable.
func (t ScamperTrace) LastMile() (models.LastMile, bool) {
	for i := 0; i < len(t.Hops); {
		addr := t.Hops[i].Addr

		var rtts []float64
		for ; i < len(t.Hops) && t.Hops[i].Addr == addr; i++ {
			rtts = append(rtts, t.Hops[i].RTT)
		}

		private, err := netinfo.IsPrivate(addr)
		if err != nil {
			return models.LastMile{}, false
		}
		if private {
			continue
		}

		return models.LastMile{
			Dst:    t.Dst,
			Src:    t.Src,
			Addr:   addr,
			RTTs:   rtts,
			Min:    minOf(rtts),
			Median: median(rtts),
			Max:    maxOf(rtts),
			Mdev:   round3(stdev(rtts)),
		}, true
	}

	return models.LastMile{}, false
}
