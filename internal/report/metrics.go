package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"netpulse/internal/sampler"
)

const namespace = "netpulse"

// WriteTextfile writes the run summary as Prometheus gauges, for the
// node_exporter textfile collector. The file is replaced on each run.
func WriteTextfile(path string, res *sampler.Result) error {
	if res == nil || res.Summary == nil {
		return fmt.Errorf("no summary to export")
	}
	reg := prometheus.NewRegistry()
	if err := register(reg, res); err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func register(reg *prometheus.Registry, res *sampler.Result) error {
	s := res.Summary
	labels := prometheus.Labels{"interface": res.Interface}

	throughput := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "throughput_mbps",
		Help:        "Average throughput over the last run, by direction.",
		ConstLabels: labels,
	}, []string{"direction"})
	throughput.WithLabelValues("download").Set(s.AvgDownload)
	throughput.WithLabelValues("upload").Set(s.AvgUpload)

	bytesTotal := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "run_bytes",
		Help:        "Bytes counted during the last run, by direction.",
		ConstLabels: labels,
	}, []string{"direction"})
	bytesTotal.WithLabelValues("received").Set(float64(s.ReceivedBytes))
	bytesTotal.WithLabelValues("transmitted").Set(float64(s.TransmittedBytes))

	samples := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "run_samples",
		Help:        "Ticks in the last run and how many had a latency reply.",
		ConstLabels: labels,
	}, []string{"kind"})
	samples.WithLabelValues("ticks").Set(float64(s.Ticks))
	samples.WithLabelValues("latency").Set(float64(s.LatencySamples))

	cs := []prometheus.Collector{throughput, bytesTotal, samples}
	if s.AvgLatencyMs != nil {
		lat := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "latency_ms",
			Help:        "Average probe round-trip time over the last run.",
			ConstLabels: prometheus.Labels{"interface": res.Interface, "target": res.Target},
		})
		lat.Set(*s.AvgLatencyMs)
		cs = append(cs, lat)
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register metric: %w", err)
		}
	}
	return nil
}
