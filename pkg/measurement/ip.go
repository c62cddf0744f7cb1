package measurement

import (
	"context"
	"fmt"
	"net/netip"

	"netrics/pkg/ipinfo"
	"netrics/pkg/task"
)

type ipParams struct {
	Service string             `json:"service"`
	Result  task.ResultOptions `json:"result"`
}

func defaultIPParams() ipParams {
	return ipParams{Service: "https://api.ipify.org/"}
}

// PublicIP retrieves the public IP address from the configured
// reflection service. The service is expected to answer 200 with the
// bare address as its body.
func (s *Service) PublicIP(ctx context.Context) task.Status {
	params := defaultIPParams()
	if err := s.readParams(&params); err != nil {
		return s.confError(err)
	}

	if failure := s.requireLAN(ctx); failure != nil {
		return failure.Status
	}

	body, status, err := ipinfo.PublicAddress(params.Service)
	if err != nil {
		task.Critical(s.logger, "address service unreachable",
			"url", params.Service,
			"error", err,
		)
		return task.StatusNoHost
	}

	if status != 200 {
		task.Critical(s.logger, "address service error",
			"url", params.Service,
			"status", fmt.Sprintf("Error (%d)", status),
			"msg", ipinfo.Truncate(body),
		)
		return task.StatusNoHost
	}

	if _, err := netip.ParseAddr(body); err != nil {
		task.Critical(s.logger, "service response error",
			"url", params.Service,
			"response", ipinfo.Truncate(body),
			"error", err,
		)
		return task.StatusSoftwareError
	}

	plan := s.plan(params.Result, "ip")

	if err := s.sink.Write(map[string]any{"ipv4": body}, plan.Label, plan.Annotate, nil); err != nil {
		task.Critical(s.logger, "result write failed", "error", err)
		return task.StatusSoftwareError
	}

	return task.StatusSuccess
}
