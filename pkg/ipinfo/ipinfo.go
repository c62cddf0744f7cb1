// Package ipinfo queries a public-IP reflection service.
package ipinfo

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// PublicAddress requests the client's public IP address from the
// configured reflection service. The service is expected to answer 200
// with the bare address as its body; the body and status are returned
// for the caller to validate.
func PublicAddress(service string) (body string, status int, err error) {
	resp, err := http.Get(service)
	if err != nil {
		return "", 0, fmt.Errorf("requesting %s: %v", service, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("reading response from %s: %v", service, err)
	}

	return strings.TrimSpace(string(raw)), resp.StatusCode, nil
}

// Truncate bounds response excerpts destined for log records.
func Truncate(content string) string {
	if len(content) > 75 {
		return content[:72] + "..."
	}
	return content
}
