package logx

import (
	"time"

	"golang.org/x/time/rate"
)

// Throttle demotes repeated warnings to debug.
//
// The first warning (and one per window afterwards) is logged at WARN; the
// rest inside the window go out at DEBUG so they stay visible with -log-level debug.
// Zero value never throttles.
type Throttle struct {
	lim *rate.Limiter
}

// NewThrottle allows one WARN per window.
func NewThrottle(window time.Duration) *Throttle {
	if window <= 0 {
		return &Throttle{}
	}
	return &Throttle{lim: rate.NewLimiter(rate.Every(window), 1)}
}

// Warn logs msg at WARN when the window allows it, DEBUG otherwise.
func (t *Throttle) Warn(l Logger, msg string, fields ...Field) {
	if t == nil || t.lim == nil || t.lim.Allow() {
		l.Warn(msg, fields...)
		return
	}
	l.Debug(msg, fields...)
}
