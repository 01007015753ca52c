package counters

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// /proc/net/dev columns after "name:": 8 receive fields, then transmit.
const (
	rxBytesField = 0
	txBytesField = 8
	minFields    = txBytesField + 1
)

// Counters are the two cumulative byte counts of one table line.
type Counters struct {
	Received    uint64
	Transmitted uint64
}

// ParseTable scans r for iface and returns its byte counters.
//
// The leading token of a line (up to the first ':') must equal iface exactly.
// Header lines carry no ':' before their first '|' and never match.
// A matching line that is too short or non-numeric is skipped; if no matching
// line parses, ErrRead is returned. ErrNotFound means no line matched at all.
func ParseTable(r io.Reader, iface string) (Counters, error) {
	s := bufio.NewScanner(r)
	matched := 0
	var lastErr error
	for s.Scan() {
		name, rest, ok := splitLine(s.Text())
		if !ok || name != iface {
			continue
		}
		matched++
		c, err := parseFields(rest)
		if err != nil {
			lastErr = err
			continue
		}
		return c, nil
	}
	if err := s.Err(); err != nil {
		return Counters{}, fmt.Errorf("%w: scan: %v", ErrRead, err)
	}
	if matched == 0 {
		return Counters{}, fmt.Errorf("%w: %s", ErrNotFound, iface)
	}
	return Counters{}, fmt.Errorf("%w: %s: %v", ErrRead, iface, lastErr)
}

// ListInterfaces returns every leading token found in the table.
func ListInterfaces(r io.Reader) ([]string, error) {
	var out []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		name, _, ok := splitLine(s.Text())
		if !ok {
			continue
		}
		out = append(out, name)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan: %v", ErrRead, err)
	}
	return out, nil
}

// splitLine isolates the leading "name:" token.
func splitLine(line string) (name, rest string, ok bool) {
	name, rest, ok = strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	name = strings.TrimLeft(name, " \t")
	if name == "" || strings.ContainsAny(name, " \t|") {
		return "", "", false
	}
	return name, rest, true
}

func parseFields(rest string) (Counters, error) {
	fields := strings.Fields(rest)
	if len(fields) < minFields {
		return Counters{}, fmt.Errorf("want at least %d fields, got %d", minFields, len(fields))
	}
	rx, err := strconv.ParseUint(fields[rxBytesField], 10, 64)
	if err != nil {
		return Counters{}, fmt.Errorf("rx bytes: %w", err)
	}
	tx, err := strconv.ParseUint(fields[txBytesField], 10, 64)
	if err != nil {
		return Counters{}, fmt.Errorf("tx bytes: %w", err)
	}
	return Counters{Received: rx, Transmitted: tx}, nil
}
