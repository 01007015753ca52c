// Package app wires config, logging, counter source, latency probe and
// report output into one measurement run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	st "github.com/showwin/speedtest-go/speedtest"

	"netpulse/internal/config"
	"netpulse/internal/counters"
	"netpulse/internal/probe"
	"netpulse/internal/report"
	"netpulse/internal/sampler"
	logx "netpulse/pkg/logx"
)

type App struct {
	cfg     *config.Config
	session sampler.SessionConfig

	log  logx.Logger
	logs *logx.Service

	src    counters.Source
	prober probe.Prober
	clock  clock.Clock

	out io.Writer

	resolveTimeout time.Duration
}

// minResolveTimeout floors the speedtest server lookup for short intervals.
const minResolveTimeout = 10 * time.Second

// serverResolver picks the probe's server before the first tick.
type serverResolver interface {
	Resolve(ctx context.Context, target string) (*st.Server, error)
}

type Option func(*App)

// WithOutput sends the report to w instead of stdout.
func WithOutput(w io.Writer) Option { return func(a *App) { a.out = w } }

// WithLogger skips building a logx.Service from the config.
func WithLogger(l logx.Logger) Option { return func(a *App) { a.log = l } }

func WithSource(src counters.Source) Option { return func(a *App) { a.src = src } }

func WithProber(p probe.Prober) Option { return func(a *App) { a.prober = p } }

func WithClock(c clock.Clock) Option { return func(a *App) { a.clock = c } }

// New validates cfg and builds the run's components. cfg.Session.Interface
// must be set by now.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Session.Interface) == "" {
		return nil, errors.New("session.interface: required")
	}
	session, err := cfg.SamplerSession()
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:            cfg,
		session:        session,
		out:            os.Stdout,
		resolveTimeout: max(5*session.SampleInterval, minResolveTimeout),
	}
	for _, o := range opts {
		o(a)
	}
	if a.log.IsZero() {
		a.logs, a.log = logx.New(cfg.LogConfig())
	}
	a.log = a.log.With(logx.String("comp", "app"))

	if a.src == nil {
		a.src = counters.NewProcSource(cfg.Counters.Path)
	}
	if a.prober == nil {
		p, err := newProber(cfg)
		if err != nil {
			return nil, err
		}
		a.prober = p
	}
	return a, nil
}

func newProber(cfg *config.Config) (probe.Prober, error) {
	timeout, err := cfg.ProbeTimeout()
	if err != nil {
		return nil, err
	}
	switch cfg.Probe.Kind {
	case config.ProbeSpeedtest:
		return probe.NewSpeedtestProbe(timeout), nil
	default:
		return probe.NewExecProbe(cfg.Probe.Command, timeout), nil
	}
}

// Close releases the log file, if any.
func (a *App) Close() error {
	if a.logs == nil {
		return nil
	}
	return a.logs.Close()
}

// Run performs one session and writes the report. The Result is returned
// even when err is non-nil so callers can inspect the partial series.
func (a *App) Run(ctx context.Context) (*sampler.Result, error) {
	a.log.Info("starting", append(a.cfg.LogFields(), logx.Any("session", a.session))...)

	target := a.cfg.Probe.Target
	label := target
	if r, ok := a.prober.(serverResolver); ok {
		s, err := a.resolve(ctx, r, target)
		if err != nil {
			return nil, fmt.Errorf("speedtest probe: %w", err)
		}
		label = fmt.Sprintf("%s (%s, %s)", s.Host, s.Sponsor, s.Name)
		a.log.Info("speedtest server selected",
			logx.String("id", s.ID),
			logx.String("host", s.Host),
			logx.Float64("distance_km", s.Distance),
		)
	}

	text := a.cfg.Output.Format != config.FormatJSON
	tw := report.NewText(a.out, a.session)

	opts := []sampler.Option{sampler.WithLogger(a.log.With(logx.String("comp", "sampler")))}
	if a.clock != nil {
		opts = append(opts, sampler.WithClock(a.clock))
	}
	if text {
		opts = append(opts, sampler.WithTickHandler(tw.Tick))
	}
	loop, err := sampler.New(a.session, a.src, a.prober, target, opts...)
	if err != nil {
		return nil, err
	}
	if text {
		tw.Header(a.session, label)
	}

	res, runErr := loop.Run(ctx)
	if runErr != nil && sampler.IsNotFound(runErr) {
		runErr = a.explainNotFound(runErr)
	}

	if text {
		if runErr != nil {
			tw.Partial(res, a.session.TickCount())
		} else {
			tw.Summary(res)
		}
	} else if err := report.WriteJSON(a.out, res, runErr); err != nil {
		a.log.Error("write json report failed", logx.Err(err))
	}
	if runErr != nil {
		a.log.Error("run failed",
			logx.String("state", res.State.String()),
			logx.Int("ticks_done", len(res.Records)),
			logx.Err(runErr),
		)
		return res, runErr
	}

	if path := strings.TrimSpace(a.cfg.Output.MetricsTextfile); path != "" {
		if err := report.WriteTextfile(path, res); err != nil {
			return res, err
		}
		a.log.Debug("metrics textfile written", logx.String("path", path))
	}
	a.log.Info("done",
		logx.String("session_id", res.SessionID),
		logx.Int("ticks", res.Summary.Ticks),
		logx.Int("latency_samples", res.Summary.LatencySamples),
	)
	return res, nil
}

// resolve bounds the server-list fetch so a stalled lookup cannot hold the
// run before its first tick.
func (a *App) resolve(ctx context.Context, r serverResolver, target string) (*st.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, a.resolveTimeout)
	defer cancel()
	return r.Resolve(ctx, target)
}

type interfaceLister interface {
	Interfaces() ([]string, error)
}

// explainNotFound appends the known interfaces (and a close match) to err.
func (a *App) explainNotFound(err error) error {
	ls, ok := a.src.(interfaceLister)
	if !ok {
		return err
	}
	known, lerr := ls.Interfaces()
	if lerr != nil || len(known) == 0 {
		return err
	}
	if s := counters.Suggest(a.session.Interface, known); s != "" {
		return fmt.Errorf("%w; did you mean %q? (available: %s)", err, s, strings.Join(known, ", "))
	}
	return fmt.Errorf("%w (available: %s)", err, strings.Join(known, ", "))
}
