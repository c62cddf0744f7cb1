package models

// PingStats are the statistics extracted from ping output. A field
// that could not be extracted holds -1.0; keys are never absent, so
// downstream consumers always see the full set.
type PingStats struct {
	RTTMinMs      float64 `json:"rtt_min_ms"`
	RTTAvgMs      float64 `json:"rtt_avg_ms"`
	RTTMaxMs      float64 `json:"rtt_max_ms"`
	RTTMdevMs     float64 `json:"rtt_mdev_ms"`
	PacketLossPct float64 `json:"packet_loss_pct"`
}

// Map returns the statistics keyed for result shaping.
func (s PingStats) Map() map[string]any {
	return map[string]any{
		"rtt_min_ms":      s.RTTMinMs,
		"rtt_avg_ms":      s.RTTAvgMs,
		"rtt_max_ms":      s.RTTMaxMs,
		"rtt_mdev_ms":     s.RTTMdevMs,
		"packet_loss_pct": s.PacketLossPct,
	}
}

// TraceHop is one parsed traceroute output line: hop number, hop
// address (resolved IP where printed) and the per-try round-trip times.
type TraceHop struct {
	Hop  int
	Addr string
	RTTs []float64
}

// LastMile describes the first hop beyond the client's private address
// space on a traced path, with its round-trip time statistics.
type LastMile struct {
	Dst    string
	Src    string
	Addr   string
	RTTs   []float64
	Min    float64
	Median float64
	Max    float64
	Mdev   float64
}

// SpeedtestSummary is the parsed output of one bandwidth client run.
// Values holds the reportable metrics keyed by statistic name;
// BytesConsumed is test overhead metadata kept out of the labeled
// results.
type SpeedtestSummary struct {
	Values        map[string]any
	BytesConsumed float64
	HasBytes      bool
}

// ARPEntry is one row of the ARP table.
type ARPEntry struct {
	Address   string
	HWType    string
	HWAddress string
}
