// Package report renders a sampling run for people and machines.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"netpulse/internal/sampler"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"

// Text writes one line per tick as it arrives, then the summary.
type Text struct {
	w           io.Writer
	maxBarWidth int
	interval    time.Duration
}

func NewText(w io.Writer, cfg sampler.SessionConfig) *Text {
	return &Text{w: w, maxBarWidth: cfg.MaxBarWidth, interval: cfg.SampleInterval}
}

// Header announces the run.
func (t *Text) Header(cfg sampler.SessionConfig, target string) {
	fmt.Fprintf(t.w, "\nMeasuring %s for %s (every %s, %d samples)\n", cfg.Interface, cfg.TotalDuration, cfg.SampleInterval, cfg.TickCount())
	fmt.Fprintf(t.w, "Ping target: %s\n", target)
	fmt.Fprintf(t.w, "Each '#' is ~1 Mbps down+up (capped at %d chars)\n\n", t.maxBarWidth)
}

// Tick writes one record.
func (t *Text) Tick(r sampler.TickRecord) {
	secs := int(time.Duration(r.Tick) * t.interval / time.Second)
	ping := "  N/A"
	if ms, ok := r.Latency(); ok {
		ping = fmt.Sprintf("%6.2f ms", ms)
	}
	fmt.Fprintf(t.w, "Second %2d | Down: %7.2f Mbps | Up: %7.2f Mbps | Ping: %s | %s\n",
		secs, r.DownloadMbps, r.UploadMbps, ping, Bar(r.TotalMbps(), t.maxBarWidth))
}

// Summary writes the closing statistics.
func (t *Text) Summary(res *sampler.Result) {
	if res == nil || res.Summary == nil {
		return
	}
	fmt.Fprint(t.w, FormatSummary(res))
}

// Partial notes how much of a failed run completed.
func (t *Text) Partial(res *sampler.Result, total int) {
	if res == nil {
		return
	}
	fmt.Fprintf(t.w, "\nRun stopped after %d of %d samples; partial data above.\n", len(res.Records), total)
}

// Bar draws ~1 char per Mbps, clamped to [0, max].
func Bar(mbps float64, max int) string {
	w := int(mbps)
	if w > max {
		w = max
	}
	if w < 0 {
		w = 0
	}
	return strings.Repeat("#", w)
}

// FormatSummary renders the run summary block.
func FormatSummary(res *sampler.Result) string {
	s := res.Summary
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(rule)
	fmt.Fprintf(&b, "Summary %s (%d samples, session %s)\n", res.Interface, s.Ticks, res.SessionID)
	b.WriteString(rule)
	fmt.Fprintf(&b, "Download: avg %.2f Mbps | max %.2f | min %.2f\n", s.AvgDownload, s.MaxDownload, s.MinDownload)
	fmt.Fprintf(&b, "Upload:   avg %.2f Mbps | max %.2f | min %.2f\n", s.AvgUpload, s.MaxUpload, s.MinUpload)
	fmt.Fprintf(&b, "Combined: avg %.2f Mbps\n", s.AvgTotal())
	if s.AvgLatencyMs != nil {
		fmt.Fprintf(&b, "Ping:     avg %.2f ms | max %.2f | min %.2f (%d/%d replies)\n",
			*s.AvgLatencyMs, *s.MaxLatency, *s.MinLatency, s.LatencySamples, s.Ticks)
	} else {
		b.WriteString("Ping:     N/A (ping failed)\n")
	}
	fmt.Fprintf(&b, "Traffic:  %s received | %s sent\n",
		humanize.Bytes(s.ReceivedBytes), humanize.Bytes(s.TransmittedBytes))
	return b.String()
}
