// Package sampler drives a fixed number of fixed-length ticks, pairing
// counter snapshots with latency probes, and summarizes the series.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"netpulse/internal/counters"
	"netpulse/internal/probe"
	"netpulse/internal/rate"
	logx "netpulse/pkg/logx"
)

// warnWindow throttles repeated per-tick warnings.
const warnWindow = 30 * time.Second

// Loop runs one measurement session. It is not reusable concurrently.
type Loop struct {
	cfg    SessionConfig
	target string

	src    counters.Source
	prober probe.Prober

	clock     clock.Clock
	log       logx.Logger
	sessionID string
	onTick    func(TickRecord)

	probeWarn *logx.Throttle
	resetWarn *logx.Throttle
}

type Option func(*Loop)

// WithClock replaces the wall clock (tests use clock.NewMock()).
func WithClock(c clock.Clock) Option { return func(l *Loop) { l.clock = c } }

func WithLogger(log logx.Logger) Option { return func(l *Loop) { l.log = log } }

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option { return func(l *Loop) { l.sessionID = id } }

// WithTickHandler is called on the loop goroutine after each record is appended.
func WithTickHandler(fn func(TickRecord)) Option { return func(l *Loop) { l.onTick = fn } }

// New validates cfg and builds a Loop probing target every tick.
func New(cfg SessionConfig, src counters.Source, prober probe.Prober, target string, opts ...Option) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if src == nil {
		return nil, errors.New("nil counter source")
	}
	if prober == nil {
		return nil, errors.New("nil latency prober")
	}
	l := &Loop{
		cfg:       cfg,
		target:    target,
		src:       src,
		prober:    prober,
		clock:     clock.New(),
		log:       logx.Nop(),
		probeWarn: logx.NewThrottle(warnWindow),
		resetWarn: logx.NewThrottle(warnWindow),
	}
	for _, o := range opts {
		o(l)
	}
	if l.sessionID == "" {
		l.sessionID = uuid.NewString()
	}
	return l, nil
}

func (l *Loop) SessionID() string { return l.sessionID }

// Run executes the session.
//
// On success the Result is Done with a full series and Summary. A counter
// failure (or ctx cancellation) returns the Result in StateFailed together
// with the error; Records then holds the ticks completed before the failure
// and is empty if priming failed.
func (l *Loop) Run(ctx context.Context) (*Result, error) {
	n := l.cfg.TickCount()
	iface := l.cfg.Interface
	log := l.log.With(logx.String("session_id", l.sessionID), logx.String("iface", iface))

	res := &Result{
		SessionID: l.sessionID,
		Interface: iface,
		Target:    l.target,
		Interval:  l.cfg.SampleInterval,
		State:     StatePriming,
		Records:   make([]TickRecord, 0, n),
	}

	prev, err := l.src.Sample(ctx, iface)
	if err != nil {
		res.State = StateFailed
		return res, &SampleError{Interface: iface, Op: OpPrime, Err: err}
	}
	log.Info("measuring",
		logx.Int("ticks", n),
		logx.Duration("interval", l.cfg.SampleInterval),
		logx.String("target", l.target),
	)

	ticker := l.clock.Ticker(l.cfg.SampleInterval)
	defer ticker.Stop()

	res.State = StateSampling
	for k := 1; k <= n; k++ {
		select {
		case <-ctx.Done():
			res.State = StateFailed
			return res, fmt.Errorf("run stopped before tick %d: %w", k, ctx.Err())
		case <-ticker.C:
		}

		cur, pr, err := l.tick(ctx)
		if err != nil {
			res.State = StateFailed
			return res, &SampleError{Interface: iface, Op: OpSample, Tick: k, Err: err}
		}

		rates := rate.Estimate(prev, cur, l.cfg.IntervalSeconds())
		if rates.Reset() {
			l.resetWarn.Warn(log, "counter went backwards; counting zero bytes this tick",
				logx.Int("tick", k),
				logx.Bool("rx_reset", rates.ReceiveReset),
				logx.Bool("tx_reset", rates.TransmitReset),
				logx.Uint64("rx_prev", prev.ReceivedBytes),
				logx.Uint64("rx_now", cur.ReceivedBytes),
				logx.Uint64("tx_prev", prev.TransmittedBytes),
				logx.Uint64("tx_now", cur.TransmittedBytes),
			)
		}

		rec := TickRecord{
			Tick:         k,
			At:           cur.TakenAt,
			DownloadMbps: rates.DownloadMbps,
			UploadMbps:   rates.UploadMbps,
		}
		if ms, ok := pr.Value(); ok {
			rec.LatencyMs = &ms
		} else {
			l.probeWarn.Warn(log, "latency probe unavailable",
				logx.Int("tick", k),
				logx.String("reason", pr.Reason()),
			)
		}

		res.Records = append(res.Records, rec)
		res.Aggregate.add(rec, rates.ReceivedBytes, rates.TransmittedBytes)
		prev = cur

		log.Debug("tick",
			logx.Int("tick", k),
			logx.Float64("down_mbps", rec.DownloadMbps),
			logx.Float64("up_mbps", rec.UploadMbps),
			logx.String("latency", pr.String()),
		)
		if l.onTick != nil {
			l.onTick(rec)
		}
	}

	res.State = StateSummarizing
	sum := res.Aggregate.Summarize()
	res.Summary = &sum
	res.State = StateDone
	return res, nil
}

// tick reads the counters and probes latency concurrently; both must return.
// A counter failure cancels the in-flight probe, and a probe never outlives
// one interval on the loop's clock.
func (l *Loop) tick(ctx context.Context) (counters.Snapshot, probe.Result, error) {
	var (
		cur counters.Snapshot
		pr  probe.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := l.src.Sample(gctx, l.cfg.Interface)
		if err != nil {
			return err
		}
		cur = s
		return nil
	})
	g.Go(func() error {
		pctx, cancel := l.clock.WithTimeout(gctx, l.cfg.SampleInterval)
		defer cancel()
		pr = l.prober.Probe(pctx, l.target)
		return nil
	})
	if err := g.Wait(); err != nil {
		return counters.Snapshot{}, probe.Result{}, err
	}
	return cur, pr, nil
}
