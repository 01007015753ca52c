// Package logx is netpulse's structured logging: a small wrapper around
// zerolog with field helpers, a per-run Service owning the sinks (console on
// stderr, optional JSON file), and Throttle for repeated per-tick warnings.
package logx
