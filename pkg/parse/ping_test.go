package parse

import (
	"testing"

	"netrics/pkg/models"
)

const pingOutputFull = `PING 1.1.1.1 (1.1.1.1) 56(84) bytes of data.
64 bytes from 1.1.1.1: icmp_seq=1 ttl=58 time=10.0 ms
64 bytes from 1.1.1.1: icmp_seq=2 ttl=58 time=10.0 ms
64 bytes from 1.1.1.1: icmp_seq=3 ttl=58 time=10.0 ms

--- 1.1.1.1 ping statistics ---
3 packets transmitted, 3 received, 0% packet loss, time 504ms
rtt min/avg/max/mdev = 10.000/10.000/10.000/0.000 ms
`

const pingOutputAllLost = `PING 10.99.99.99 (10.99.99.99) 56(84) bytes of data.

--- 10.99.99.99 ping statistics ---
10 packets transmitted, 0 received, 100% packet loss, time 9216ms
`

func TestPing(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   models.PingStats
	}{
		{
			name:   "full statistics",
			output: pingOutputFull,
			want: models.PingStats{
				RTTMinMs:      10.0,
				RTTAvgMs:      10.0,
				RTTMaxMs:      10.0,
				RTTMdevMs:     0.0,
				PacketLossPct: 0.0,
			},
		},
		{
			name:   "total loss has no rtt line",
			output: pingOutputAllLost,
			want: models.PingStats{
				RTTMinMs:      -1.0,
				RTTAvgMs:      -1.0,
				RTTMaxMs:      -1.0,
				RTTMdevMs:     -1.0,
				PacketLossPct: 100.0,
			},
		},
		{
			name:   "empty output",
			output: "",
			want: models.PingStats{
				RTTMinMs:      -1.0,
				RTTAvgMs:      -1.0,
				RTTMaxMs:      -1.0,
				RTTMdevMs:     -1.0,
				PacketLossPct: -1.0,
			},
		},
		{
			name:   "garbage never errors",
			output: "not ping output at all\nrtt = broken",
			want: models.PingStats{
				RTTMinMs:      -1.0,
				RTTAvgMs:      -1.0,
				RTTMaxMs:      -1.0,
				RTTMdevMs:     -1.0,
				PacketLossPct: -1.0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ping(tt.output)
			if got != tt.want {
				t.Errorf("Ping() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPingStatsMap(t *testing.T) {
	stats := models.PingStats{
		RTTMinMs:      9.1,
		RTTAvgMs:      10.2,
		RTTMaxMs:      11.3,
		RTTMdevMs:     0.4,
		PacketLossPct: 0.0,
	}

	m := stats.Map()

	want := map[string]float64{
		"rtt_min_ms":      9.1,
		"rtt_avg_ms":      10.2,
		"rtt_max_ms":      11.3,
		"rtt_mdev_ms":     0.4,
		"packet_loss_pct": 0.0,
	}

	for key, value := range want {
		got, ok := m[key]
		if !ok {
			t.Errorf("Map() missing key %q", key)
			continue
		}
		if got != value {
			t.Errorf("Map()[%q] = %v, want %v", key, got, value)
		}
	}

	if len(m) != len(want) {
		t.Errorf("Map() has %d keys, want %d", len(m), len(want))
	}
}
