package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"netpulse/internal/counters"
	"netpulse/internal/sampler"
	logx "netpulse/pkg/logx"
)

const (
	DefaultDuration    = "10s"
	DefaultInterval    = "1s"
	DefaultMaxBarWidth = 50
	DefaultTarget      = "8.8.8.8"

	ProbeExec      = "exec"
	ProbeSpeedtest = "speedtest"

	FormatText = "text"
	FormatJSON = "json"
)

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Logging: LoggingConfig{Console: true}}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values in place.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Session.Duration) == "" {
		c.Session.Duration = DefaultDuration
	}
	if strings.TrimSpace(c.Session.Interval) == "" {
		c.Session.Interval = DefaultInterval
	}
	if c.Session.MaxBarWidth == 0 {
		c.Session.MaxBarWidth = DefaultMaxBarWidth
	}
	if strings.TrimSpace(c.Counters.Path) == "" {
		c.Counters.Path = counters.DefaultPath
	}
	if strings.TrimSpace(c.Probe.Kind) == "" {
		c.Probe.Kind = ProbeExec
	}
	if c.Probe.Kind == ProbeExec && strings.TrimSpace(c.Probe.Target) == "" {
		c.Probe.Target = DefaultTarget
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Output.Format) == "" {
		c.Output.Format = FormatText
	}
}

// Validate reports every problem in one error. The interface name is not
// required here because it may still come from the prompt.
func (c *Config) Validate() error {
	dur, derr := secondsField("session.duration", c.Session.Duration)
	iv, ierr := secondsField("session.interval", c.Session.Interval)
	err := multierr.Combine(derr, ierr)
	if err == nil && dur%iv != 0 {
		err = fmt.Errorf("session.duration: %s is not a multiple of session.interval %s", dur, iv)
	}
	if c.Session.MaxBarWidth <= 0 {
		err = multierr.Append(err, fmt.Errorf("session.max_bar_width: must be > 0"))
	}
	if c.Session.Interface != "" {
		if e := counters.ValidateName(c.Session.Interface); e != nil {
			err = multierr.Append(err, fmt.Errorf("session.interface: %w", e))
		}
	}

	switch c.Probe.Kind {
	case ProbeExec:
		if strings.TrimSpace(c.Probe.Target) == "" {
			err = multierr.Append(err, errors.New("probe.target: required for kind exec"))
		}
	case ProbeSpeedtest:
	default:
		err = multierr.Append(err, fmt.Errorf("probe.kind: unknown %q (supported: exec, speedtest)", c.Probe.Kind))
	}
	if _, e := durationField("probe.timeout", c.Probe.Timeout, 0); e != nil {
		err = multierr.Append(err, e)
	}

	if !logx.ValidLevel(c.Logging.Level) {
		err = multierr.Append(err, fmt.Errorf("logging.level: unknown %q", c.Logging.Level))
	}
	switch c.Output.Format {
	case FormatText, FormatJSON:
	default:
		err = multierr.Append(err, fmt.Errorf("output.format: unknown %q (supported: text, json)", c.Output.Format))
	}
	return err
}

// SamplerSession builds the sampler's session config. Call Validate first.
func (c *Config) SamplerSession() (sampler.SessionConfig, error) {
	dur, err := secondsField("session.duration", c.Session.Duration)
	if err != nil {
		return sampler.SessionConfig{}, err
	}
	iv, err := secondsField("session.interval", c.Session.Interval)
	if err != nil {
		return sampler.SessionConfig{}, err
	}
	s := sampler.SessionConfig{
		Interface:      c.Session.Interface,
		TotalDuration:  dur,
		SampleInterval: iv,
		MaxBarWidth:    c.Session.MaxBarWidth,
	}
	return s, s.Validate()
}

// ProbeTimeout is probe.timeout capped at the sample interval.
func (c *Config) ProbeTimeout() (time.Duration, error) {
	iv, err := secondsField("session.interval", c.Session.Interval)
	if err != nil {
		return 0, err
	}
	d, err := durationField("probe.timeout", c.Probe.Timeout, iv)
	if err != nil {
		return 0, err
	}
	if iv > 0 && d > iv {
		d = iv
	}
	return d, nil
}

// LogConfig maps the logging section onto logx.
func (c *Config) LogConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

// LogFields summarizes the effective config for a startup log line.
func (c *Config) LogFields() []logx.Field {
	return []logx.Field{
		logx.String("session.duration", c.Session.Duration),
		logx.String("session.interval", c.Session.Interval),
		logx.String("counters.path", c.Counters.Path),
		logx.String("probe.kind", c.Probe.Kind),
		logx.String("probe.target", c.Probe.Target),
		logx.String("output.format", c.Output.Format),
		logx.Bool("output.metrics_textfile_set", c.Output.MetricsTextfile != ""),
	}
}
