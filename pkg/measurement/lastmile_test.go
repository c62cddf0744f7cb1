package measurement

import (
	"bytes"
	"context"
	"reflect"
	"testing"

	"netrics/pkg/proc"
	"netrics/pkg/task"
)

// scamper trace of 8.8.8.8 that never leaves the private network: no
// last mile to extract.
const scamperAllPrivate = `{"type":"trace", "src":"192.168.1.100", "dst":"8.8.8.8", "stop_reason":"GAPLIMIT", "hop_count":2, "probe_count":6, "hops":[{"addr":"192.168.1.1", "probe_ttl":1, "rtt":0.5}, {"addr":"10.90.0.1", "probe_ttl":2, "rtt":1.2}]}
`

// scamper trace of 1.1.1.1 whose second hop is public.
const scamperWithLastMile = `{"type":"trace", "src":"192.168.1.100", "dst":"1.1.1.1", "stop_reason":"COMPLETED", "hop_count":3, "probe_count":9, "hops":[{"addr":"192.168.1.1", "probe_ttl":1, "rtt":0.5}, {"addr":"96.120.60.1", "probe_ttl":2, "rtt":11.0}, {"addr":"96.120.60.1", "probe_ttl":2, "rtt":13.0}, {"addr":"96.120.60.1", "probe_ttl":2, "rtt":12.0}, {"addr":"1.1.1.1", "probe_ttl":3, "rtt":14.0}]}
`

func TestLastMileSequentialFallback(t *testing.T) {
	runner := &stubRunner{}
	runner.respond = func(c proc.Command) proc.Result {
		if res, ok := gateOK(c); ok {
			return res
		}

		if c.Name == "scamper" {
			stdout := scamperAllPrivate
			if c.Args[len(c.Args)-1] == "1.1.1.1" {
				stdout = scamperWithLastMile
			}
			return proc.Result{Name: c.Name, Args: c.Args, Stdout: stdout}
		}

		t.Errorf("unexpected command: %s %v", c.Name, c.Args)
		return proc.Result{ExitCode: 127}
	}

	var out bytes.Buffer
	service := newTestService(runner, `{}`, &out)

	status := service.LastMile(context.Background())
	if status != task.StatusSuccess {
		t.Fatalf("LastMile() = %v, want success", status)
	}

	// the second target is traced only after the first yielded nothing
	wantOrder := []string{"8.8.8.8", "1.1.1.1"}
	if got := runner.callTargets("scamper"); !reflect.DeepEqual(got, wantOrder) {
		t.Errorf("scamper targets = %v, want %v", got, wantOrder)
	}

	doc := decodeResult(t, &out)

	labeled, ok := doc["last_mile_rtt"].(map[string]any)
	if !ok {
		t.Fatalf("no last_mile_rtt label in %v", doc)
	}

	if got := labeled["Cloudflare_DNS_last_mile_tr_rtt_median_ms"]; got != 12.0 {
		t.Errorf("median = %v, want 12.0 under the winning target's label", got)
	}
	if got := labeled["Cloudflare_DNS_last_mile_tr_rtt_min_ms"]; got != 11.0 {
		t.Errorf("min = %v, want 11.0", got)
	}

	// the raw RTT list has no place in a flattened result
	if _, ok := labeled["Cloudflare_DNS_last_mile_tr_rtt_ms"]; ok {
		t.Error("flattened result carries the raw RTT list")
	}
	// address fields appear only on request
	if _, ok := labeled["Cloudflare_DNS_last_mile_tr_addr"]; ok {
		t.Error("last-mile address included without include.last_mile_ip")
	}
}

func TestLastMileAllTargetsExhausted(t *testing.T) {
	runner := &stubRunner{}
	runner.respond = func(c proc.Command) proc.Result {
		if res, ok := gateOK(c); ok {
			return res
		}
		return proc.Result{Name: c.Name, Args: c.Args, Stdout: scamperAllPrivate}
	}

	var out bytes.Buffer
	service := newTestService(runner, `{}`, &out)

	if status := service.LastMile(context.Background()); status != task.StatusNoHost {
		t.Errorf("LastMile() = %v, want no-host after exhausting every target", status)
	}

	if out.Len() != 0 {
		t.Errorf("result written despite failure: %q", out.String())
	}
}

func TestLastMileScamperFailureAborts(t *testing.T) {
	runner := &stubRunner{}
	runner.respond = func(c proc.Command) proc.Result {
		if res, ok := gateOK(c); ok {
			return res
		}
		return proc.Result{Name: c.Name, Args: c.Args, ExitCode: 255}
	}

	var out bytes.Buffer
	service := newTestService(runner, `{}`, &out)

	if status := service.LastMile(context.Background()); status != task.StatusSoftwareError {
		t.Errorf("LastMile() = %v, want software error on scamper failure", status)
	}

	// a configuration error is fatal immediately, with no fallback
	if got := runner.callTargets("scamper"); len(got) != 1 {
		t.Errorf("scamper ran %d times after a fatal error, want 1", len(got))
	}
}

func TestLastMileMissingScamper(t *testing.T) {
	runner := &stubRunner{missing: map[string]bool{"scamper": true}}

	var out bytes.Buffer
	service := newTestService(runner, `{}`, &out)

	if status := service.LastMile(context.Background()); status != task.StatusFileMissing {
		t.Errorf("LastMile() = %v, want missing-executable status", status)
	}
}
