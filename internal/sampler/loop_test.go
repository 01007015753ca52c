package sampler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"netpulse/internal/counters"
	"netpulse/internal/probe"
)

// scriptedSource returns snapshots in order; an entry with err set fails that call.
type scriptedSource struct {
	mu    sync.Mutex
	steps []sourceStep
	calls int
}

type sourceStep struct {
	rx, tx uint64
	err    error
}

func (s *scriptedSource) Sample(ctx context.Context, iface string) (counters.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.steps) {
		return counters.Snapshot{}, fmt.Errorf("unexpected sample call %d", s.calls)
	}
	st := s.steps[s.calls]
	s.calls++
	if st.err != nil {
		return counters.Snapshot{}, st.err
	}
	return counters.Snapshot{ReceivedBytes: st.rx, TransmittedBytes: st.tx, TakenAt: time.Unix(int64(s.calls), 0)}, nil
}

// scriptedProber answers tick k with latencies[k-1]; a negative value means unavailable.
type scriptedProber struct {
	mu        sync.Mutex
	latencies []float64
	calls     int
	targets   []string
}

func (p *scriptedProber) Probe(ctx context.Context, target string) probe.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targets = append(p.targets, target)
	i := p.calls
	p.calls++
	if i >= len(p.latencies) || p.latencies[i] < 0 {
		return probe.Unavailable("scripted failure")
	}
	return probe.Latency(p.latencies[i])
}

func sessionConfig(ticks int) SessionConfig {
	return SessionConfig{
		Interface:      "wlan0",
		TotalDuration:  time.Duration(ticks) * time.Second,
		SampleInterval: time.Second,
		MaxBarWidth:    50,
	}
}

// runWithMock runs the loop while advancing a mock clock until it returns.
func runWithMock(t *testing.T, ctx context.Context, cfg SessionConfig, src counters.Source, pr probe.Prober, opts ...Option) (*Result, error) {
	t.Helper()
	mock := clock.NewMock()
	opts = append(opts, WithClock(mock))
	l, err := New(cfg, src, pr, "8.8.8.8", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	type out struct {
		res *Result
		err error
	}
	done := make(chan out, 1)
	go func() {
		res, err := l.Run(ctx)
		done <- out{res, err}
	}()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case o := <-done:
			return o.res, o.err
		case <-deadline:
			t.Fatal("loop did not finish")
		default:
			mock.Add(cfg.SampleInterval)
		}
	}
}

func TestRunProbeFailuresOnSomeTicks(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{steps: []sourceStep{
		{rx: 0, tx: 0},
		{rx: 125_000, tx: 0},
		{rx: 250_000, tx: 125_000},
		{rx: 375_000, tx: 250_000},
		{rx: 500_000, tx: 375_000},
	}}
	pr := &scriptedProber{latencies: []float64{10, -1, -1, 30}}

	res, err := runWithMock(t, context.Background(), sessionConfig(4), src, pr)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateDone {
		t.Fatalf("State = %v, want done", res.State)
	}
	if len(res.Records) != 4 {
		t.Fatalf("len(Records) = %d, want 4", len(res.Records))
	}
	for i, r := range res.Records {
		if r.Tick != i+1 {
			t.Fatalf("record %d has tick %d", i, r.Tick)
		}
		if r.DownloadMbps != 1 {
			t.Fatalf("tick %d download = %v, want 1", r.Tick, r.DownloadMbps)
		}
	}
	if _, ok := res.Records[1].Latency(); ok {
		t.Fatalf("tick 2 should have no latency")
	}
	if _, ok := res.Records[2].Latency(); ok {
		t.Fatalf("tick 3 should have no latency")
	}
	if ms, ok := res.Records[3].Latency(); !ok || ms != 30 {
		t.Fatalf("tick 4 latency = %v, %v", ms, ok)
	}

	if res.Aggregate.LatencySamples != 2 || res.Aggregate.TickCount != 4 {
		t.Fatalf("aggregate = %+v", res.Aggregate)
	}
	s := res.Summary
	if s == nil {
		t.Fatal("missing summary")
	}
	if s.AvgLatencyMs == nil || *s.AvgLatencyMs != 20 {
		t.Fatalf("AvgLatencyMs = %v, want 20", s.AvgLatencyMs)
	}
	if s.AvgDownload != 1 || s.AvgUpload != 0.75 {
		t.Fatalf("averages = %v/%v, want 1/0.75", s.AvgDownload, s.AvgUpload)
	}
	if s.ReceivedBytes != 500_000 || s.TransmittedBytes != 375_000 {
		t.Fatalf("byte totals = %d/%d", s.ReceivedBytes, s.TransmittedBytes)
	}
	if *s.MinLatency != 10 || *s.MaxLatency != 30 {
		t.Fatalf("latency range = %v..%v", *s.MinLatency, *s.MaxLatency)
	}
	for _, target := range pr.targets {
		if target != "8.8.8.8" {
			t.Fatalf("probe target = %q", target)
		}
	}
}

func TestRunPrimingFailure(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{steps: []sourceStep{{err: fmt.Errorf("%w: wlan0", counters.ErrNotFound)}}}
	pr := &scriptedProber{}

	res, err := runWithMock(t, context.Background(), sessionConfig(4), src, pr)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	var se *SampleError
	if !errors.As(err, &se) || se.Op != OpPrime || se.Interface != "wlan0" {
		t.Fatalf("err = %#v, want prime SampleError", err)
	}
	if res.State != StateFailed || len(res.Records) != 0 || res.Summary != nil {
		t.Fatalf("unexpected result: state=%v records=%d summary=%v", res.State, len(res.Records), res.Summary)
	}
	if pr.calls != 0 {
		t.Fatalf("probe ran %d times before priming succeeded", pr.calls)
	}
}

func TestRunMidRunFailureKeepsPartialSeries(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{steps: []sourceStep{
		{rx: 0, tx: 0},
		{rx: 1000, tx: 1000},
		{rx: 2000, tx: 2000},
		{err: fmt.Errorf("%w: scan: boom", counters.ErrRead)},
	}}
	pr := &scriptedProber{latencies: []float64{1, 2, 3, 4}}

	res, err := runWithMock(t, context.Background(), sessionConfig(4), src, pr)
	if !errors.Is(err, counters.ErrRead) {
		t.Fatalf("err = %v, want ErrRead", err)
	}
	var se *SampleError
	if !errors.As(err, &se) || se.Op != OpSample || se.Tick != 3 {
		t.Fatalf("err = %v, want sample error at tick 3", err)
	}
	if !strings.Contains(err.Error(), "wlan0") {
		t.Fatalf("diagnostic %q should name the interface", err.Error())
	}
	if res.State != StateFailed || res.Summary != nil {
		t.Fatalf("state=%v summary=%v", res.State, res.Summary)
	}
	if len(res.Records) != 2 || res.Aggregate.TickCount != 2 {
		t.Fatalf("records=%d aggregate ticks=%d, want 2", len(res.Records), res.Aggregate.TickCount)
	}
}

func TestRunCounterResetCountsZero(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{steps: []sourceStep{
		{rx: 1_000_000, tx: 10},
		{rx: 500, tx: 125_010},
		{rx: 125_500, tx: 125_010},
	}}
	pr := &scriptedProber{latencies: []float64{5, 5}}

	res, err := runWithMock(t, context.Background(), sessionConfig(2), src, pr)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := res.Records[0]; got.DownloadMbps != 0 || got.UploadMbps != 1 {
		t.Fatalf("tick 1 = %+v, want 0 down / 1 up", got)
	}
	if got := res.Records[1]; got.DownloadMbps != 1 || got.UploadMbps != 0 {
		t.Fatalf("tick 2 = %+v, want 1 down / 0 up", got)
	}
}

func TestRunNoLatencyAtAll(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{steps: []sourceStep{{}, {}, {}}}
	pr := &scriptedProber{}

	res, err := runWithMock(t, context.Background(), sessionConfig(2), src, pr)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary.AvgLatencyMs != nil || res.Summary.LatencySamples != 0 {
		t.Fatalf("expected no latency average, got %+v", res.Summary)
	}
	if res.Summary.AvgDownload != 0 {
		t.Fatalf("zero traffic should average 0, got %v", res.Summary.AvgDownload)
	}
}

func TestRunTickHandlerInOrder(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{steps: []sourceStep{{}, {}, {}, {}}}
	var seen []int
	res, err := runWithMock(t, context.Background(), sessionConfig(3), src, &scriptedProber{},
		WithTickHandler(func(r TickRecord) { seen = append(seen, r.Tick) }),
		WithSessionID("fixed"),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fmt.Sprint(seen) != "[1 2 3]" {
		t.Fatalf("handler saw %v", seen)
	}
	if res.SessionID != "fixed" {
		t.Fatalf("SessionID = %q", res.SessionID)
	}
}

func TestRunCancelledBeforeFirstTick(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scriptedSource{steps: []sourceStep{{}}}
	l, err := New(sessionConfig(3), src, &scriptedProber{}, "h", WithClock(clock.NewMock()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := l.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.State != StateFailed || len(res.Records) != 0 {
		t.Fatalf("state=%v records=%d", res.State, len(res.Records))
	}
}

// blockingProber waits for cancellation, like a hung ping.
type blockingProber struct{}

func (blockingProber) Probe(ctx context.Context, target string) probe.Result {
	<-ctx.Done()
	return probe.Unavailable(ctx.Err().Error())
}

func TestRunCounterFailureCancelsProbe(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{steps: []sourceStep{{}, {err: counters.ErrRead}}}
	res, err := runWithMock(t, context.Background(), sessionConfig(60), src, blockingProber{})
	if !errors.Is(err, counters.ErrRead) {
		t.Fatalf("err = %v, want ErrRead", err)
	}
	if len(res.Records) != 0 {
		t.Fatalf("records = %d, want 0", len(res.Records))
	}
}

func TestRunHungProbeBoundedByInterval(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{steps: []sourceStep{
		{rx: 0, tx: 0},
		{rx: 125_000, tx: 0},
		{rx: 250_000, tx: 0},
		{rx: 375_000, tx: 0},
	}}
	res, err := runWithMock(t, context.Background(), sessionConfig(3), src, blockingProber{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateDone || len(res.Records) != 3 {
		t.Fatalf("state = %v, records = %d", res.State, len(res.Records))
	}
	for _, r := range res.Records {
		if r.LatencyMs != nil {
			t.Fatalf("tick %d latency = %v, want absent", r.Tick, *r.LatencyMs)
		}
		if r.DownloadMbps != 1 {
			t.Fatalf("tick %d download = %v, want 1", r.Tick, r.DownloadMbps)
		}
	}
	if res.Summary.LatencySamples != 0 || res.Summary.AvgLatencyMs != nil {
		t.Fatalf("summary = %+v", res.Summary)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  SessionConfig
	}{
		{name: "not divisible", cfg: SessionConfig{Interface: "eth0", TotalDuration: 5 * time.Second, SampleInterval: 2 * time.Second, MaxBarWidth: 1}},
		{name: "fractional interval", cfg: SessionConfig{Interface: "eth0", TotalDuration: 3 * time.Second, SampleInterval: 1500 * time.Millisecond, MaxBarWidth: 1}},
		{name: "zero duration", cfg: SessionConfig{Interface: "eth0", SampleInterval: time.Second, MaxBarWidth: 1}},
		{name: "empty interface", cfg: SessionConfig{TotalDuration: time.Second, SampleInterval: time.Second, MaxBarWidth: 1}},
		{name: "zero bar width", cfg: SessionConfig{Interface: "eth0", TotalDuration: time.Second, SampleInterval: time.Second}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg, &scriptedSource{}, &scriptedProber{}, "h"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSessionConfigTickCount(t *testing.T) {
	t.Parallel()
	cfg := SessionConfig{Interface: "eth0", TotalDuration: 10 * time.Second, SampleInterval: 2 * time.Second, MaxBarWidth: 50}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.TickCount() != 5 || cfg.IntervalSeconds() != 2 {
		t.Fatalf("TickCount=%d IntervalSeconds=%d", cfg.TickCount(), cfg.IntervalSeconds())
	}
}

func TestSummarizeEmptyAggregate(t *testing.T) {
	t.Parallel()
	s := Aggregate{}.Summarize()
	if s.AvgDownload != 0 || s.AvgLatencyMs != nil || s.Ticks != 0 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}
