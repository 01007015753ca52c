package sampler

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"netpulse/internal/counters"
)

// SessionConfig fixes the shape of one measurement run.
type SessionConfig struct {
	Interface      string
	TotalDuration  time.Duration
	SampleInterval time.Duration
	// MaxBarWidth is only read by the text renderer.
	MaxBarWidth int
}

// Validate checks every field and reports all violations together.
func (c SessionConfig) Validate() error {
	var err error
	if e := counters.ValidateName(c.Interface); e != nil {
		err = multierr.Append(err, fmt.Errorf("interface: %w", e))
	}
	if c.TotalDuration <= 0 || c.TotalDuration%time.Second != 0 {
		err = multierr.Append(err, fmt.Errorf("duration must be a positive whole number of seconds, got %s", c.TotalDuration))
	}
	if c.SampleInterval <= 0 || c.SampleInterval%time.Second != 0 {
		err = multierr.Append(err, fmt.Errorf("interval must be a positive whole number of seconds, got %s", c.SampleInterval))
	}
	if c.TotalDuration > 0 && c.SampleInterval > 0 && c.TotalDuration%c.SampleInterval != 0 {
		err = multierr.Append(err, fmt.Errorf("duration %s is not a multiple of interval %s", c.TotalDuration, c.SampleInterval))
	}
	if c.MaxBarWidth <= 0 {
		err = multierr.Append(err, fmt.Errorf("max_bar_width must be positive, got %d", c.MaxBarWidth))
	}
	return err
}

// TickCount is the number of ticks the session runs.
func (c SessionConfig) TickCount() int {
	if c.SampleInterval <= 0 {
		return 0
	}
	return int(c.TotalDuration / c.SampleInterval)
}

// IntervalSeconds is the sample interval in whole seconds.
func (c SessionConfig) IntervalSeconds() int { return int(c.SampleInterval / time.Second) }

// TickRecord is one tick's measurement. Immutable once appended.
type TickRecord struct {
	Tick         int       `json:"tick"`
	At           time.Time `json:"at"`
	DownloadMbps float64   `json:"download_mbps"`
	UploadMbps   float64   `json:"upload_mbps"`
	// LatencyMs is nil when the probe produced no value.
	LatencyMs *float64 `json:"latency_ms"`
}

// Latency returns the latency and whether the probe succeeded.
func (r TickRecord) Latency() (float64, bool) {
	if r.LatencyMs == nil {
		return 0, false
	}
	return *r.LatencyMs, true
}

// TotalMbps is download plus upload.
func (r TickRecord) TotalMbps() float64 { return r.DownloadMbps + r.UploadMbps }

// Aggregate holds running sums. Mutated once per tick.
type Aggregate struct {
	SumDownloadMbps float64
	SumUploadMbps   float64
	SumLatencyMs    float64
	LatencySamples  int
	TickCount       int

	ReceivedBytes    uint64
	TransmittedBytes uint64

	MinDownloadMbps, MaxDownloadMbps float64
	MinUploadMbps, MaxUploadMbps     float64
	MinLatencyMs, MaxLatencyMs       float64
}

func (a *Aggregate) add(r TickRecord, rxBytes, txBytes uint64) {
	a.TickCount++
	a.SumDownloadMbps += r.DownloadMbps
	a.SumUploadMbps += r.UploadMbps
	a.ReceivedBytes += rxBytes
	a.TransmittedBytes += txBytes

	if a.TickCount == 1 {
		a.MinDownloadMbps, a.MaxDownloadMbps = r.DownloadMbps, r.DownloadMbps
		a.MinUploadMbps, a.MaxUploadMbps = r.UploadMbps, r.UploadMbps
	} else {
		a.MinDownloadMbps = min(a.MinDownloadMbps, r.DownloadMbps)
		a.MaxDownloadMbps = max(a.MaxDownloadMbps, r.DownloadMbps)
		a.MinUploadMbps = min(a.MinUploadMbps, r.UploadMbps)
		a.MaxUploadMbps = max(a.MaxUploadMbps, r.UploadMbps)
	}

	ms, ok := r.Latency()
	if !ok {
		return
	}
	a.LatencySamples++
	a.SumLatencyMs += ms
	if a.LatencySamples == 1 {
		a.MinLatencyMs, a.MaxLatencyMs = ms, ms
		return
	}
	a.MinLatencyMs = min(a.MinLatencyMs, ms)
	a.MaxLatencyMs = max(a.MaxLatencyMs, ms)
}

// Summary is derived from the Aggregate after the last tick.
type Summary struct {
	Ticks          int     `json:"ticks"`
	LatencySamples int     `json:"latency_samples"`
	AvgDownload    float64 `json:"avg_download_mbps"`
	AvgUpload      float64 `json:"avg_upload_mbps"`
	// AvgLatencyMs is nil when no probe succeeded.
	AvgLatencyMs *float64 `json:"avg_latency_ms"`

	MinDownload float64  `json:"min_download_mbps"`
	MaxDownload float64  `json:"max_download_mbps"`
	MinUpload   float64  `json:"min_upload_mbps"`
	MaxUpload   float64  `json:"max_upload_mbps"`
	MinLatency  *float64 `json:"min_latency_ms"`
	MaxLatency  *float64 `json:"max_latency_ms"`

	ReceivedBytes    uint64 `json:"received_bytes"`
	TransmittedBytes uint64 `json:"transmitted_bytes"`
}

// AvgTotal is the combined average throughput.
func (s Summary) AvgTotal() float64 { return s.AvgDownload + s.AvgUpload }

// Summarize derives averages. Averages are over TickCount; latency over samples only.
func (a Aggregate) Summarize() Summary {
	s := Summary{
		Ticks:            a.TickCount,
		LatencySamples:   a.LatencySamples,
		ReceivedBytes:    a.ReceivedBytes,
		TransmittedBytes: a.TransmittedBytes,
		MinDownload:      a.MinDownloadMbps,
		MaxDownload:      a.MaxDownloadMbps,
		MinUpload:        a.MinUploadMbps,
		MaxUpload:        a.MaxUploadMbps,
	}
	if a.TickCount > 0 {
		s.AvgDownload = a.SumDownloadMbps / float64(a.TickCount)
		s.AvgUpload = a.SumUploadMbps / float64(a.TickCount)
	}
	if a.LatencySamples > 0 {
		avg := a.SumLatencyMs / float64(a.LatencySamples)
		lo, hi := a.MinLatencyMs, a.MaxLatencyMs
		s.AvgLatencyMs, s.MinLatency, s.MaxLatency = &avg, &lo, &hi
	}
	return s
}

// State is the loop's lifecycle position.
type State int

const (
	StatePriming State = iota
	StateSampling
	StateSummarizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePriming:
		return "priming"
	case StateSampling:
		return "sampling"
	case StateSummarizing:
		return "summarizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is what a run produced. On failure Records holds the ticks
// completed before the failure and Summary is nil.
type Result struct {
	SessionID string
	Interface string
	Target    string
	Interval  time.Duration
	State     State
	Records   []TickRecord
	Aggregate Aggregate
	Summary   *Summary
}

// Op names the counter read that failed.
type Op string

const (
	OpPrime  Op = "prime"
	OpSample Op = "sample"
)

// SampleError is a fatal counter-read failure.
type SampleError struct {
	Interface string
	Op        Op
	Tick      int // 0 while priming
	Err       error
}

func (e *SampleError) Error() string {
	if e.Op == OpPrime {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Interface, e.Err)
	}
	return fmt.Sprintf("%s %s (tick %d): %v", e.Op, e.Interface, e.Tick, e.Err)
}

func (e *SampleError) Unwrap() error { return e.Err }

// IsNotFound reports whether err says the interface is absent.
func IsNotFound(err error) bool { return errors.Is(err, counters.ErrNotFound) }
