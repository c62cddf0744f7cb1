// Package resolve maps measurement destinations to IP addresses,
// running dig look-ups for hostnames in parallel.
package resolve

import (
	"net/netip"
	"strings"

	"netrics/pkg/proc"
)

// Lookups holds the per-host resolution outcomes of one destination
// set. IP-literal hosts pass through unchanged with no subprocess; the
// remainder are resolved concurrently, every dig fired before any is
// waited on, so wall-clock time is bounded by the slowest look-up.
type Lookups struct {
	order []string
	addrs map[string]string
	codes map[string]int
}

// Addresses resolves hosts via runner. The only error is a missing dig
// executable, reported before any look-up runs; per-host failures are
// recorded in the Lookups instead.
func Addresses(hosts []string, runner proc.Runner) (*Lookups, error) {
	l := &Lookups{
		order: append([]string(nil), hosts...),
		addrs: make(map[string]string, len(hosts)),
		codes: make(map[string]int),
	}

	type query struct {
		host   string
		waiter proc.Waiter
	}

	var queries []query
	checked := false

	for _, host := range hosts {
		if _, err := netip.ParseAddr(host); err == nil {
			l.addrs[host] = host
			continue
		}

		if !checked {
			if _, err := runner.LookPath("dig"); err != nil {
				return nil, err
			}
			checked = true
		}

		w, err := runner.Start(proc.Command{Name: "dig", Args: []string{"+short", host}})
		if err != nil {
			return nil, err
		}

		queries = append(queries, query{host: host, waiter: w})
	}

	for _, q := range queries {
		res, err := q.waiter.Wait()
		if err != nil {
			l.codes[q.host] = -1
			continue
		}

		l.codes[q.host] = res.ExitCode

		if res.ExitCode == 0 {
			if first, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n"); first != "" {
				l.addrs[q.host] = first
			}
		}
	}

	return l, nil
}

// Addr returns the resolved address for host, empty when unresolved.
func (l *Lookups) Addr(host string) string {
	return l.addrs[host]
}

// Code returns the dig exit code recorded for a queried host.
func (l *Lookups) Code(host string) int {
	return l.codes[host]
}

// Resolved returns the distinct resolved addresses in input order.
func (l *Lookups) Resolved() []string {
	seen := make(map[string]bool)
	var addrs []string

	for _, host := range l.order {
		addr := l.addrs[host]
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		addrs = append(addrs, addr)
	}

	return addrs
}

// Unresolved returns the hosts with no resolved address, in input
// order.
func (l *Lookups) Unresolved() []string {
	var hosts []string
	for _, host := range l.order {
		if l.addrs[host] == "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// Hosts returns every input host that resolved to addr.
func (l *Lookups) Hosts(addr string) []string {
	var hosts []string
	for _, host := range l.order {
		if l.addrs[host] == addr {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

