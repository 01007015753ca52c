// Package probe measures one round-trip latency sample to a target.
//
// Latency is best-effort telemetry: every backend reports failure as an
// Unavailable Result, never as an error.
package probe

import (
	"context"
	"fmt"
)

// Result is either a latency in milliseconds or Unavailable.
type Result struct {
	ms     float64
	ok     bool
	reason string
}

// Latency builds a successful result. Negative values are Unavailable.
func Latency(ms float64) Result {
	if ms < 0 {
		return Unavailable(fmt.Sprintf("negative latency %v", ms))
	}
	return Result{ms: ms, ok: true}
}

// Unavailable builds a failed result; reason is for logs only.
func Unavailable(reason string) Result {
	return Result{reason: reason}
}

// Value returns the latency and whether one was measured.
func (r Result) Value() (float64, bool) { return r.ms, r.ok }

// OK reports whether a latency was measured.
func (r Result) OK() bool { return r.ok }

// Reason explains an Unavailable result.
func (r Result) Reason() string { return r.reason }

func (r Result) String() string {
	if r.ok {
		return fmt.Sprintf("%.2f ms", r.ms)
	}
	return "N/A"
}

// Prober takes one latency sample to target.
// Implementations must return once ctx is done.
type Prober interface {
	Probe(ctx context.Context, target string) Result
}

// Func adapts a function to Prober.
type Func func(ctx context.Context, target string) Result

func (f Func) Probe(ctx context.Context, target string) Result { return f(ctx, target) }
