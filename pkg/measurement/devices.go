package measurement

import (
	"context"
	"fmt"
	"time"

	"netrics/pkg/parse"
	"netrics/pkg/proc"
	"netrics/pkg/task"
)

type devicesParams struct {
	Iface  string             `json:"iface"`
	Result task.ResultOptions `json:"result"`
}

func defaultDevicesParams() devicesParams {
	return devicesParams{Iface: "eth0"}
}

// deviceStore maps device MAC addresses to the Unix timestamp of their
// most recent detection, persisted across invocations through the
// state store.
type deviceStore map[string]int64

// Record marks each device as seen at ts.
func (d deviceStore) Record(ts int64, devices ...string) {
	for _, device := range devices {
		d[device] = ts
	}
}

// Count reports the devices last seen within span of before, where the
// window is (before-span, before].
func (d deviceStore) Count(span time.Duration, before int64) int {
	since := before - int64(span.Seconds())

	n := 0
	for _, lastSeen := range d {
		if before >= lastSeen && lastSeen > since {
			n++
		}
	}
	return n
}

// Devices counts the devices connected to the local network.
//
// nmap populates the ARP table by scanning the interface's subnet, and
// the table is then read back with arp. Devices are recorded by MAC
// address with their detection timestamp persisted to the state store,
// from which the rolling one-day and one-week counts derive.
func (s *Service) Devices(ctx context.Context) task.Status {
	params := defaultDevicesParams()
	if err := s.readParams(&params); err != nil {
		return s.confError(err)
	}

	for _, tool := range []string{"nmap", "arp"} {
		if _, err := s.runner.LookPath(tool); err != nil {
			task.Critical(s.logger, "executable not found", "exec", tool)
			return task.StatusFileMissing
		}
	}

	if failure := s.requireLAN(ctx); failure != nil {
		return failure.Status
	}

	subnet, err := s.network(params.Iface)
	if err != nil {
		task.Critical(s.logger, "could not locate interface subnet",
			"iface", params.Iface,
			"error", err,
		)
		return task.StatusOSError
	}

	// no output wanted from the scan, only the side effect of a
	// freshened ARP table
	res, err := s.runner.Run(ctx, proc.Command{
		Name: "nmap",
		Args: []string{"-sn", subnet},
	})
	if err != nil || res.ExitCode != 0 {
		task.Critical(s.logger, "subnet scan failed",
			"dest", subnet,
			"status", fmt.Sprintf("Error (%d)", res.ExitCode),
			"stdout", res.Stdout,
			"stderr", res.Stderr,
			"error", err,
		)
		return task.StatusSoftwareError
	}

	res, err = s.runner.Run(ctx, proc.Command{
		Name: "arp",
		Args: []string{"-e", "--numeric", "--device", params.Iface},
	})
	if err != nil || res.ExitCode != 0 {
		task.Critical(s.logger, "arp table read failed",
			"iface", params.Iface,
			"status", fmt.Sprintf("Error (%d)", res.ExitCode),
			"stdout", res.Stdout,
			"stderr", res.Stderr,
			"error", err,
		)
		return task.StatusSoftwareError
	}

	seen := make(map[string]struct{})
	for _, entry := range parse.ARPTable(res.Stdout) {
		if entry.Address == "_gateway" || entry.HWAddress == params.Iface {
			continue
		}
		seen[entry.HWAddress] = struct{}{}
	}

	devices := make([]string, 0, len(seen))
	for device := range seen {
		devices = append(devices, device)
	}

	s.logger.Info("devices detected", "count", len(devices))

	store := deviceStore{}
	if err := s.state.Read(&store); err != nil {
		task.Critical(s.logger, "device state unreadable", "error", err)
		return task.StatusSoftwareError
	}

	now := time.Now().Unix()
	store.Record(now, devices...)

	if err := s.state.Write(store); err != nil {
		task.Critical(s.logger, "device state write failed", "error", err)
		return task.StatusSoftwareError
	}

	counts := map[string]any{
		"active": len(devices),
		"total":  len(store),
		"1day":   store.Count(24*time.Hour, now),
		"1week":  store.Count(7*24*time.Hour, now),
	}

	plan := s.plan(params.Result, "devices")

	var shaped map[string]any
	if plan.Flat {
		shaped = task.Flatten(map[string]map[string]any{"devices": counts})
	} else {
		shaped = map[string]any{"devices": counts}
	}

	if err := s.sink.Write(shaped, plan.Label, plan.Annotate, nil); err != nil {
		task.Critical(s.logger, "result write failed", "error", err)
		return task.StatusSoftwareError
	}

	return task.StatusSuccess
}
