package parse

import (
	"strings"

	"netrics/pkg/models"
)

// ARPTable parses `arp -e` output into entries, tolerating the header
// row and short lines.
func ARPTable(output string) []models.ARPEntry {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")

	if len(lines) > 0 && strings.HasPrefix(strings.ToLower(lines[0]), "address") {
		lines = lines[1:]
	}

	entries := make([]models.ARPEntry, 0, len(lines))

	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		entries = append(entries, models.ARPEntry{
			Address:   fields[0],
			HWType:    fields[1],
			HWAddress: fields[2],
		})
	}

	return entries
}
