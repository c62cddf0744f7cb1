package parse

import (
	"reflect"
	"testing"
)

const tracerouteClean = `traceroute to 8.8.8.8 (8.8.8.8), 30 hops max, 60 byte packets
 1  _gateway (192.168.1.1)  0.489 ms  0.612 ms  0.734 ms
 2  96.120.60.1 (96.120.60.1)  12.201 ms  12.822 ms  13.114 ms
`

func TestTracerouteHops(t *testing.T) {
	hops, anomalies := TracerouteHops(tracerouteClean)

	if len(anomalies) != 0 {
		t.Errorf("TracerouteHops() anomalies = %v, want none", anomalies)
	}

	if len(hops) != 2 {
		t.Fatalf("TracerouteHops() returned %d hops, want 2", len(hops))
	}

	if hops[0].Hop != 1 || hops[0].Addr != "192.168.1.1" {
		t.Errorf("hop 1 = %+v, want hop 1 addr 192.168.1.1", hops[0])
	}

	wantRTTs := []float64{0.489, 0.612, 0.734}
	if !reflect.DeepEqual(hops[0].RTTs, wantRTTs) {
		t.Errorf("hop 1 RTTs = %v, want %v", hops[0].RTTs, wantRTTs)
	}

	if hops[1].Hop != 2 || hops[1].Addr != "96.120.60.1" {
		t.Errorf("hop 2 = %+v, want hop 2 addr 96.120.60.1", hops[1])
	}
}

func TestTracerouteHopsAnomalies(t *testing.T) {
	input := `traceroute to 8.8.8.8 (8.8.8.8), 30 hops max, 60 byte packets
 1  _gateway (192.168.1.1)  0.489 ms  0.612 ms  0.734 ms
 3  * * *
send: operation not permitted
`

	hops, anomalies := TracerouteHops(input)

	if len(hops) != 1 {
		t.Errorf("TracerouteHops() returned %d hops, want 1", len(hops))
	}

	// title and no-response lines are expected shapes, not anomalies
	want := []string{"send: operation not permitted"}
	if !reflect.DeepEqual(anomalies, want) {
		t.Errorf("TracerouteHops() anomalies = %v, want %v", anomalies, want)
	}
}

func TestTracerouteHopCount(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		wantCount int
		wantOK    bool
	}{
		{
			name: "destination reached",
			output: `traceroute to 8.8.8.8 (8.8.8.8), 64 hops max
 1  192.168.1.1  0.489 ms  0.612 ms  0.734 ms
 9  dns.google (8.8.8.8)  14.002 ms  14.532 ms  15.114 ms
`,
			wantCount: 9,
			wantOK:    true,
		},
		{
			name:      "unreached destination still counts hops",
			output:    "traceroute to 10.0.0.1 (10.0.0.1), 64 hops max\n64  * * *\n",
			wantCount: 64,
			wantOK:    true,
		},
		{
			name:   "empty output",
			output: "",
			wantOK: false,
		},
		{
			name:   "non-numeric last line",
			output: "traceroute: unknown host\n",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, ok := TracerouteHopCount(tt.output)
			if ok != tt.wantOK {
				t.Fatalf("TracerouteHopCount() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && count != tt.wantCount {
				t.Errorf("TracerouteHopCount() = %d, want %d", count, tt.wantCount)
			}
		})
	}
}
