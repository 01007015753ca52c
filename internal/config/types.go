package config

type Config struct {
	Session  SessionConfig  `json:"session"`
	Counters CountersConfig `json:"counters"`
	Probe    ProbeConfig    `json:"probe"`
	Logging  LoggingConfig  `json:"logging"`
	Output   OutputConfig   `json:"output"`
}

// SessionConfig shapes one run.
//
// Durations are Go duration strings and must be whole seconds
// (e.g. "10s", "1m"). duration must be a multiple of interval.
type SessionConfig struct {
	// Interface may be left empty; the CLI then asks for it.
	Interface   string `json:"interface"`
	Duration    string `json:"duration"`
	Interval    string `json:"interval"`
	MaxBarWidth int    `json:"max_bar_width"`
}

// CountersConfig points at the counter table.
type CountersConfig struct {
	Path string `json:"path,omitempty"` // default: /proc/net/dev
}

// ProbeConfig selects the latency backend.
//
// Example:
//
//	"probe": { "kind": "exec", "target": "8.8.8.8", "command": "ping", "timeout": "1s" }
//
// kind "speedtest" pings a speedtest.net server instead; target is then a
// server ID (empty = closest).
type ProbeConfig struct {
	Kind    string `json:"kind"`
	Target  string `json:"target"`
	Command string `json:"command,omitempty"`
	// Timeout is capped at session.interval; empty means the interval.
	Timeout string `json:"timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// OutputConfig controls the report.
type OutputConfig struct {
	// Format is "text" or "json".
	Format string `json:"format"`
	// MetricsTextfile, when set, receives the run summary in Prometheus
	// text format (node_exporter textfile collector).
	MetricsTextfile string `json:"metrics_textfile,omitempty"`
}
