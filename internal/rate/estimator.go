// Package rate turns two cumulative counter snapshots into throughput.
package rate

import "netpulse/internal/counters"

const bitsPerMegabit = 1_000_000

// Rates is the throughput observed between two snapshots.
type Rates struct {
	DownloadMbps float64
	UploadMbps   float64

	// Deltas actually counted (0 for a direction that reset).
	ReceivedBytes    uint64
	TransmittedBytes uint64

	// A direction resets when its counter went backwards (wrap, driver reload).
	ReceiveReset  bool
	TransmitReset bool
}

// Reset reports whether either direction went backwards.
func (r Rates) Reset() bool { return r.ReceiveReset || r.TransmitReset }

// Estimate computes Mbps per direction over intervalSeconds.
// A decreasing counter counts as zero bytes for that direction.
// intervalSeconds <= 0 yields zero rates (deltas are still reported).
func Estimate(prev, cur counters.Snapshot, intervalSeconds int) Rates {
	var r Rates
	r.ReceivedBytes, r.ReceiveReset = delta(prev.ReceivedBytes, cur.ReceivedBytes)
	r.TransmittedBytes, r.TransmitReset = delta(prev.TransmittedBytes, cur.TransmittedBytes)
	r.DownloadMbps = Mbps(r.ReceivedBytes, intervalSeconds)
	r.UploadMbps = Mbps(r.TransmittedBytes, intervalSeconds)
	return r
}

// Mbps converts bytes seen over intervalSeconds to megabits per second.
func Mbps(bytes uint64, intervalSeconds int) float64 {
	if intervalSeconds <= 0 {
		return 0
	}
	return float64(bytes) * 8 / (float64(intervalSeconds) * bitsPerMegabit)
}

func delta(prev, cur uint64) (uint64, bool) {
	if cur < prev {
		return 0, true
	}
	return cur - prev, false
}
