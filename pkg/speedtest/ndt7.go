package speedtest

import (
	"encoding/json"
	"log/slog"
	"strings"

	"netrics/pkg/models"
	"netrics/pkg/proc"
)

type ndt7Client struct {
	exec string
}

func newNDT7Client(cfg Config) *ndt7Client {
	exec := cfg.Exec
	if exec == "" {
		exec = "ndt7-client"
	}
	return &ndt7Client{exec: exec}
}

func (c *ndt7Client) Name() string { return "ndt7" }

func (c *ndt7Client) Command() proc.Command {
	return proc.Command{
		Name: c.exec,
		Args: []string{"-format", "json"},
	}
}

// The ndt7 client writes nothing benign to stderr.
func (c *ndt7Client) QuietStderr(stderr string) bool { return false }

type ndt7Status struct {
	Key   string `json:"Key"`
	Value struct {
		Origin  string `json:"Origin"`
		Test    string `json:"Test"`
		AppInfo struct {
			NumBytes float64 `json:"NumBytes"`
		} `json:"AppInfo"`
	} `json:"Value"`
}

type ndt7Summary struct {
	ServerFQDN string `json:"ServerFQDN"`
	ServerIP   string `json:"ServerIP"`
	Download   *struct {
		UUID       string `json:"UUID"`
		Throughput struct {
			Value float64 `json:"Value"`
		} `json:"Throughput"`
		Retransmission struct {
			Value float64 `json:"Value"`
		} `json:"Retransmission"`
		Latency struct {
			Value float64 `json:"Value"`
		} `json:"Latency"`
	} `json:"Download"`
	Upload *struct {
		Throughput struct {
			Value float64 `json:"Value"`
		} `json:"Throughput"`
	} `json:"Upload"`
}

// ParseSummary reads the ndt7 client's JSON-lines output: status lines
// followed by a single summary line. Bytes consumed by each test are
// only reported on the client-origin status lines, where the last one
// per test carries the total.
func (c *ndt7Client) ParseSummary(stdout string) *models.SpeedtestSummary {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil
	}

	var summary ndt7Summary
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &summary); err != nil {
		slog.Error("output parsing error", "error", err)
		return nil
	}
	if summary.Download == nil || summary.Upload == nil {
		slog.Error("output parsing error", "error", "incomplete summary")
		return nil
	}

	bytesConsumed := map[string]float64{}
	for _, line := range lines[:len(lines)-1] {
		var status ndt7Status
		if err := json.Unmarshal([]byte(line), &status); err != nil {
			continue
		}
		if status.Key != "measurement" || status.Value.Origin != "client" {
			continue
		}
		// Overwrite per test: the last status line carries the total.
		bytesConsumed[status.Value.Test] = status.Value.AppInfo.NumBytes
	}

	total := bytesConsumed["download"] + bytesConsumed["upload"]

	return &models.SpeedtestSummary{
		Values: map[string]any{
			"download":        summary.Download.Throughput.Value,
			"upload":          summary.Upload.Throughput.Value,
			"downloadretrans": summary.Download.Retransmission.Value,
			"downloadlatency": summary.Download.Latency.Value,
			"server":          summary.ServerFQDN,
			"server_ip":       summary.ServerIP,
		},
		BytesConsumed: total,
		HasBytes:      total > 0,
	}
}
