// Package counters reads cumulative per-interface byte counters from the
// kernel's /proc/net/dev table.
package counters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultPath is the Linux counter table.
const DefaultPath = "/proc/net/dev"

var (
	// ErrNotFound means no line of the table names the interface.
	ErrNotFound = errors.New("interface not found")
	// ErrRead means the table could not be read, or the interface line
	// did not carry the required byte counters.
	ErrRead = errors.New("counter table unreadable")
	// ErrInvalidName rejects empty names and names with whitespace or ':'.
	ErrInvalidName = errors.New("invalid interface name")
)

// Snapshot is one reading of an interface's cumulative byte counters.
type Snapshot struct {
	ReceivedBytes    uint64
	TransmittedBytes uint64
	TakenAt          time.Time
}

// Source yields counter snapshots for a named interface.
type Source interface {
	Sample(ctx context.Context, iface string) (Snapshot, error)
}

// ProcSource reads the table from a file (normally DefaultPath).
type ProcSource struct {
	Path string
	// Now stamps snapshots; defaults to time.Now.
	Now func() time.Time
}

// NewProcSource returns a ProcSource for path ("" = DefaultPath).
func NewProcSource(path string) *ProcSource {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	return &ProcSource{Path: path, Now: time.Now}
}

// Sample reads the table once and extracts iface's counters.
func (s *ProcSource) Sample(ctx context.Context, iface string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if err := ValidateName(iface); err != nil {
		return Snapshot{}, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: open %s: %v", ErrRead, s.Path, err)
	}
	defer f.Close()

	c, err := ParseTable(f, iface)
	if err != nil {
		return Snapshot{}, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return Snapshot{ReceivedBytes: c.Received, TransmittedBytes: c.Transmitted, TakenAt: now()}, nil
}

// Interfaces lists the interface names present in the table, in table order.
func (s *ProcSource) Interfaces() ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrRead, s.Path, err)
	}
	defer f.Close()
	return ListInterfaces(f)
}

// ValidateName checks iface is a single non-empty token.
func ValidateName(iface string) error {
	if iface == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(iface, " \t\r\n\v\f:") {
		return fmt.Errorf("%w: %q", ErrInvalidName, iface)
	}
	return nil
}
