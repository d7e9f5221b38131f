// Package metrics counts exposure outcomes and exports them for the
// node_exporter textfile collector
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/obslab/camlab/camera"
)

// Metrics holds the acquisition collectors on a private registry
type Metrics struct {
	reg *prometheus.Registry

	exposures *prometheus.CounterVec
	wait      *prometheus.HistogramVec
	temp      *prometheus.GaugeVec
	frames    *prometheus.CounterVec
}

// New returns a Metrics with every collector registered
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		exposures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "camlab",
			Subsystem: "exposure",
			Name:      "total",
			Help:      "Exposures by backend and outcome",
		}, []string{"backend", "result"}),
		wait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "camlab",
			Subsystem: "exposure",
			Name:      "duration_seconds",
			Help:      "Time from trigger to frame ready or failure",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"backend"}),
		temp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "camlab",
			Subsystem: "sensor",
			Name:      "temperature_celsius",
			Help:      "Last sensor temperature read",
		}, []string{"backend"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "camlab",
			Subsystem: "frames",
			Name:      "written_total",
			Help:      "Frames written to disk by file format",
		}, []string{"format"}),
	}
	m.reg.MustRegister(m.exposures, m.wait, m.temp, m.frames)
	return m
}

// Result classifies the error returned by an exposure
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, camera.Timeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, camera.ExposureInProgress):
		return "busy"
	}
	return "failed"
}

// ObserveExposure records one exposure that took d and ended with err
func (m *Metrics) ObserveExposure(backend string, d time.Duration, err error) {
	m.exposures.WithLabelValues(backend, Result(err)).Inc()
	m.wait.WithLabelValues(backend).Observe(d.Seconds())
}

// SetTemperature records a sensor temperature, Celsius
func (m *Metrics) SetTemperature(backend string, c float64) {
	m.temp.WithLabelValues(backend).Set(c)
}

// FrameWritten counts a frame saved as format, e.g. "fits"
func (m *Metrics) FrameWritten(format string) {
	m.frames.WithLabelValues(format).Inc()
}

// Registry exposes the registry, for serving or gathering
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// WriteTextfile atomically writes every metric to path in the text format
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
