package measurement

import (
	"bytes"
	"context"
	"testing"
	"time"

	"netrics/pkg/proc"
	"netrics/pkg/task"
)

const ooklaResultStdout = `{"type":"result","ping":{"jitter":1.25,"latency":9.42},"download":{"bandwidth":14168558,"bytes":145563876},"upload":{"bandwidth":4165398,"bytes":41284404},"server":{"id":5551,"host":"speedtest.example.net","name":"Example ISP"},"result":{"url":"https://www.speedtest.net/result/c/example"}}`

func speedtestResponder(t *testing.T, stdout string) func(proc.Command) proc.Result {
	return func(c proc.Command) proc.Result {
		if res, ok := gateOK(c); ok {
			return res
		}
		if c.Name != "speedtest" {
			t.Errorf("unexpected command: %s %v", c.Name, c.Args)
		}
		return proc.Result{Name: c.Name, Args: c.Args, Stdout: stdout}
	}
}

func TestSpeedtestMeasurement(t *testing.T) {
	runner := &stubRunner{}
	runner.respond = speedtestResponder(t, ooklaResultStdout)

	var out bytes.Buffer
	service := newTestService(runner, `{"accept_license": true}`, &out)

	status := service.Speedtest(context.Background())
	if status != task.StatusSuccess {
		t.Fatalf("Speedtest() = %v, want success", status)
	}

	doc := decodeResult(t, &out)

	labeled, ok := doc["speedtest_ookla"].(map[string]any)
	if !ok {
		t.Fatalf("no speedtest_ookla label in %v", doc)
	}

	wantDownload := 14168558.0 * 8 / 1e6
	if got := labeled["speedtest_ookla_download"]; got != wantDownload {
		t.Errorf("download = %v, want %v Mbps", got, wantDownload)
	}

	// bytes consumed extends the document outside the label
	wantBytes := 145563876.0 + 41284404.0
	if got := doc["test_bytes_consumed"]; got != wantBytes {
		t.Errorf("test_bytes_consumed = %v, want %v at the top level", got, wantBytes)
	}
	if _, ok := labeled["test_bytes_consumed"]; ok {
		t.Error("test_bytes_consumed leaked inside the labeled results")
	}
}

func TestSpeedtestRequiresLicenseAcceptance(t *testing.T) {
	runner := &stubRunner{}
	runner.respond = speedtestResponder(t, ooklaResultStdout)

	var out bytes.Buffer
	service := newTestService(runner, `{}`, &out)

	if status := service.Speedtest(context.Background()); status != task.StatusConfError {
		t.Errorf("Speedtest() = %v, want configuration error without accept_license", status)
	}
}

func TestSpeedtestTimeout(t *testing.T) {
	runner := &stubRunner{}
	runner.respond = speedtestResponder(t, "")
	runner.fail = func(c proc.Command) error {
		if c.Name == "speedtest" {
			if c.Timeout != 45*time.Second {
				t.Errorf("Timeout = %v, want the 45s default", c.Timeout)
			}
			return proc.ErrTimeout
		}
		return nil
	}

	var out bytes.Buffer
	service := newTestService(runner, `{"accept_license": true}`, &out)

	if status := service.Speedtest(context.Background()); status != task.StatusTimeout {
		t.Errorf("Speedtest() = %v, want timeout status", status)
	}
}

func TestSpeedtestNoResults(t *testing.T) {
	runner := &stubRunner{}
	runner.respond = speedtestResponder(t, "")

	var out bytes.Buffer
	service := newTestService(runner, `{"accept_license": true}`, &out)

	if status := service.Speedtest(context.Background()); status != task.StatusNoHost {
		t.Errorf("Speedtest() = %v, want no-host with empty client output", status)
	}
}

func TestSpeedtestMissingClient(t *testing.T) {
	runner := &stubRunner{missing: map[string]bool{"ndt7-client": true}}
	runner.respond = func(c proc.Command) proc.Result {
		res, _ := gateOK(c)
		return res
	}

	var out bytes.Buffer
	service := newTestService(runner, `{"client": "ndt7"}`, &out)

	if status := service.Speedtest(context.Background()); status != task.StatusFileMissing {
		t.Errorf("Speedtest() = %v, want missing-executable status", status)
	}
}
