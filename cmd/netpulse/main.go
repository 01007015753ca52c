package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"netpulse/internal/app"
	"netpulse/internal/config"
)

type flags struct {
	config   string
	iface    string
	duration time.Duration
	interval time.Duration
	target   string
	json     bool
	logLevel string
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", "", "path to config file (yaml or json)")
	flag.StringVar(&f.iface, "iface", "", "interface to measure (prompted when empty)")
	flag.DurationVar(&f.duration, "duration", 0, "total run time, whole seconds (default 10s)")
	flag.DurationVar(&f.interval, "interval", 0, "sample interval, whole seconds (default 1s)")
	flag.StringVar(&f.target, "target", "", "latency probe target")
	flag.BoolVar(&f.json, "json", false, "print the report as JSON")
	flag.StringVar(&f.logLevel, "log-level", "", "trace, debug, info, warn or error")
	flag.Parse()

	os.Exit(run(f))
}

func run(f flags) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.NewLoader(f.config).Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	f.apply(cfg)

	if strings.TrimSpace(cfg.Session.Interface) == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "fatal: no interface given; use -iface or session.interface")
			return 1
		}
		name, err := promptInterface(os.Stdin, os.Stdout)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			return 1
		}
		cfg.Session.Interface = name
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	defer a.Close()

	if _, err := a.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	return 0
}

// apply lets flags override the file.
func (f flags) apply(cfg *config.Config) {
	if f.iface != "" {
		cfg.Session.Interface = f.iface
	}
	if f.duration > 0 {
		cfg.Session.Duration = f.duration.String()
	}
	if f.interval > 0 {
		cfg.Session.Interval = f.interval.String()
	}
	if f.target != "" {
		cfg.Probe.Target = f.target
	}
	if f.json {
		cfg.Output.Format = config.FormatJSON
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
}
