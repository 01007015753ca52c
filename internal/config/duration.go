package config

import (
	"fmt"
	"strings"
	"time"
)

// durationField parses the Go duration at path; "" yields def.
func durationField(path, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: %q is not a duration (want e.g. \"10s\"): %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: %s is negative", path, d)
	}
	return d, nil
}

// secondsField parses a session length: positive and whole seconds, since
// rates and tick counts are computed in seconds.
func secondsField(path, raw string) (time.Duration, error) {
	d, err := durationField(path, raw, 0)
	if err != nil {
		return 0, err
	}
	if d <= 0 || d%time.Second != 0 {
		return 0, fmt.Errorf("%s: must be a positive whole number of seconds, got %q", path, raw)
	}
	return d, nil
}
