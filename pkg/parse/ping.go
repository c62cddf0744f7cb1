// Package parse turns the textual and JSON-lines output of external
// network tools into typed statistic records. Parsing never fails on
// malformed input: it degrades to sentinel values or skips lines.
package parse

import (
	"regexp"
	"strconv"

	"netrics/pkg/models"
)

var (
	pingRTTPattern  = regexp.MustCompile(`rtt [a-z/]* = ([0-9.]*)/([0-9.]*)/([0-9.]*)/([0-9.]*) ms`)
	pingLossPattern = regexp.MustCompile(`, ([0-9.]*)% packet loss`)
)

// Ping extracts round-trip and packet-loss statistics from ping output.
// Fields missing from the text come back as -1.0, never as an error.
func Ping(output string) models.PingStats {
	stats := models.PingStats{
		RTTMinMs:      -1.0,
		RTTAvgMs:      -1.0,
		RTTMaxMs:      -1.0,
		RTTMdevMs:     -1.0,
		PacketLossPct: -1.0,
	}

	if m := pingRTTPattern.FindStringSubmatch(output); m != nil {
		stats.RTTMinMs = parseFloat(m[1])
		stats.RTTAvgMs = parseFloat(m[2])
		stats.RTTMaxMs = parseFloat(m[3])
		stats.RTTMdevMs = parseFloat(m[4])
	}

	if m := pingLossPattern.FindStringSubmatch(output); m != nil {
		stats.PacketLossPct = parseFloat(m[1])
	}

	return stats
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return -1.0
	}
	return v
}
