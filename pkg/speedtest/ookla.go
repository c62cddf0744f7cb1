package speedtest

import (
	"encoding/json"
	"log/slog"
	"os"
	"regexp"

	"netrics/pkg/models"
	"netrics/pkg/proc"
)

// On first run the Ookla CLI prints its license acceptance notice to
// stderr; that is not an error.
var ooklaLicensePattern = regexp.MustCompile(
	`(?si)^=+\n+You may only use this Speedtest software.+` +
		`\n+License acceptance recorded.\s+Continuing.\s*$`)

type ooklaClient struct {
	exec string
}

func newOoklaClient(cfg Config) *ooklaClient {
	exec := cfg.Exec
	if exec == "" {
		exec = "speedtest"
	}
	return &ooklaClient{exec: exec}
}

func (c *ooklaClient) Name() string { return "ookla" }

func (c *ooklaClient) Command() proc.Command {
	cmd := proc.Command{
		Name: c.exec,
		Args: []string{"--accept-license", "--format", "json", "--progress", "no"},
	}

	// The Ookla CLI fails when HOME is completely unset (as it may be
	// under systemd): it only wants to record license acceptance. Let
	// it fall back to a scratch directory.
	if os.Getenv("HOME") == "" {
		cmd.Env = []string{"HOME=" + os.TempDir()}
	}

	return cmd
}

func (c *ooklaClient) QuietStderr(stderr string) bool {
	return ooklaLicensePattern.MatchString(stderr)
}

type ooklaOutput struct {
	Download *struct {
		Bandwidth float64 `json:"bandwidth"`
		Bytes     float64 `json:"bytes"`
	} `json:"download"`
	Upload *struct {
		Bandwidth float64 `json:"bandwidth"`
		Bytes     float64 `json:"bytes"`
	} `json:"upload"`
	Ping *struct {
		Jitter  float64 `json:"jitter"`
		Latency float64 `json:"latency"`
	} `json:"ping"`
	Server *struct {
		Host string `json:"host"`
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"server"`
	Result *struct {
		URL string `json:"url"`
	} `json:"result"`
	PacketLoss *float64 `json:"packetLoss"`
}

// ParseSummary reads the single JSON document the Ookla CLI emits.
// Bandwidth figures arrive in bytes per second and are reported in
// Mbps.
func (c *ooklaClient) ParseSummary(stdout string) *models.SpeedtestSummary {
	if stdout == "" {
		return nil
	}

	var out ooklaOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		slog.Error("output parsing error", "error", err)
		return nil
	}

	if out.Download == nil || out.Upload == nil || out.Ping == nil ||
		out.Server == nil || out.Result == nil {
		slog.Error("output parsing error", "error", "incomplete document")
		return nil
	}

	values := map[string]any{
		"download":    out.Download.Bandwidth * 8 / 1e6,
		"upload":      out.Upload.Bandwidth * 8 / 1e6,
		"jitter":      out.Ping.Jitter,
		"latency":     out.Ping.Latency,
		"server_host": out.Server.Host,
		"server_name": out.Server.Name,
		"server_id":   out.Server.ID,
	}

	if out.PacketLoss != nil {
		values["pktloss2"] = *out.PacketLoss
	}

	return &models.SpeedtestSummary{
		Values:        values,
		BytesConsumed: out.Download.Bytes + out.Upload.Bytes,
		HasBytes:      true,
	}
}
