package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Destination is one measurement target with its result label. For
// list-form destination sets the label is the address itself.
type Destination struct {
	Addr  string
	Label string
}

// Destinations is the destination-set parameter: either an ordered list
// of unique addresses, or a mapping of address to result label. The
// variant is resolved at the parameter boundary into a uniform ordered
// list of (address, label) pairs; internal logic never re-inspects it.
type Destinations struct {
	pairs  []Destination
	mapped bool
}

// DestinationList builds a list-form destination set, for defaults.
func DestinationList(addrs ...string) Destinations {
	d := Destinations{pairs: make([]Destination, 0, len(addrs))}
	for _, addr := range addrs {
		d.pairs = append(d.pairs, Destination{Addr: addr, Label: addr})
	}
	return d
}

// DestinationMap builds a map-form destination set, for defaults.
func DestinationMap(pairs ...Destination) Destinations {
	return Destinations{pairs: pairs, mapped: true}
}

func (d *Destinations) UnmarshalJSON(b []byte) error {
	var probe any
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}

	switch probe.(type) {
	case []any:
		var addrs []string
		if err := json.Unmarshal(b, &addrs); err != nil {
			return fmt.Errorf("destinations: %v", err)
		}
		return d.fromList(addrs)
	case map[string]any:
		return d.fromObject(b)
	}

	return fmt.Errorf("destinations: must be a non-repeating list of network " +
		"locators or a mapping of these to their result labels")
}

func (d *Destinations) fromList(addrs []string) error {
	seen := make(map[string]bool, len(addrs))

	d.pairs = d.pairs[:0]
	d.mapped = false

	for _, addr := range addrs {
		if addr == "" {
			return fmt.Errorf("destinations: empty address")
		}
		if seen[addr] {
			return fmt.Errorf("destinations: repeated address %q", addr)
		}
		seen[addr] = true
		d.pairs = append(d.pairs, Destination{Addr: addr, Label: addr})
	}

	return nil
}

// fromObject decodes the mapping form through the token stream so the
// configured order of addresses is preserved.
func (d *Destinations) fromObject(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	if _, err := dec.Token(); err != nil { // opening brace
		return fmt.Errorf("destinations: %v", err)
	}

	seen := make(map[string]bool)

	d.pairs = d.pairs[:0]
	d.mapped = true

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("destinations: %v", err)
		}
		addr := keyTok.(string)
		if addr == "" {
			return fmt.Errorf("destinations: empty address")
		}
		if seen[addr] {
			return fmt.Errorf("destinations: repeated address %q", addr)
		}
		seen[addr] = true

		var label string
		if err := dec.Decode(&label); err != nil {
			return fmt.Errorf("destinations: label for %q: must be a string", addr)
		}
		if label == "" {
			return fmt.Errorf("destinations: empty label for %q", addr)
		}

		d.pairs = append(d.pairs, Destination{Addr: addr, Label: label})
	}

	return nil
}

// All returns the destination pairs in configured order.
func (d Destinations) All() []Destination {
	return d.pairs
}

// Addrs returns the addresses in configured order.
func (d Destinations) Addrs() []string {
	addrs := make([]string, len(d.pairs))
	for i, pair := range d.pairs {
		addrs[i] = pair.Addr
	}
	return addrs
}

// Label returns the result label for addr, falling back to the address
// itself.
func (d Destinations) Label(addr string) string {
	for _, pair := range d.pairs {
		if pair.Addr == addr {
			return pair.Label
		}
	}
	return addr
}

func (d Destinations) Len() int { return len(d.pairs) }
