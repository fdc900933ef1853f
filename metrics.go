package ascent

import (
	"context"
	"errors"
	"net/http"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports the last ascent report.
type Metrics struct {
	registry    *prometheus.Registry
	altitude    prometheus.Gauge
	apA         prometheus.Gauge
	peA         prometheus.Gauge
	speed       prometheus.Gauge
	ΔvToAp      prometheus.Gauge
	ΔvToRaisePe prometheus.Gauge
	totalΔv     prometheus.Gauge
	reports     prometheus.Counter
	nonFinite   prometheus.Counter
	errors      *prometheus.CounterVec
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "ascent", Name: name, Help: help})
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ascent", Name: name, Help: help})
}

// NewMetrics returns the metrics registered on their own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry:    prometheus.NewRegistry(),
		altitude:    newGauge("altitude_meters", "Current altitude."),
		apA:         newGauge("apoapsis_meters", "Current apoapsis altitude."),
		peA:         newGauge("periapsis_meters", "Current periapsis altitude."),
		speed:       newGauge("speed_meters_per_second", "Current orbital speed."),
		ΔvToAp:      newGauge("delta_v_to_apoapsis_meters_per_second", "Δv needed to reach the desired apoapsis."),
		ΔvToRaisePe: newGauge("delta_v_to_raise_periapsis_meters_per_second", "Δv needed at apoapsis to raise the periapsis."),
		totalΔv:     newGauge("total_delta_v_meters_per_second", "Total Δv needed to reach the target orbit."),
		reports:     newCounter("reports_total", "Number of computed reports."),
		nonFinite:   newCounter("non_finite_reports_total", "Number of reports holding a NaN or an infinity."),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ascent", Name: "telemetry_errors_total", Help: "Number of telemetry errors.",
		}, []string{"source"}),
	}
	m.registry.MustRegister(m.altitude, m.apA, m.peA, m.speed, m.ΔvToAp, m.ΔvToRaisePe, m.totalΔv, m.reports, m.nonFinite, m.errors)
	return m
}

// Observe records the report.
func (m *Metrics) Observe(r AscentReport) {
	m.reports.Inc()
	if !r.Finite() {
		m.nonFinite.Inc()
	}
	m.altitude.Set(r.Snapshot.Altitude)
	m.apA.Set(r.Snapshot.ApA)
	m.peA.Set(r.Snapshot.PeA)
	m.speed.Set(r.Snapshot.Speed)
	m.ΔvToAp.Set(r.ΔvToAp)
	m.ΔvToRaisePe.Set(r.ΔvToRaisePe)
	m.totalΔv.Set(r.TotalΔv)
}

// TelemetryError records a failed read of the named source.
func (m *Metrics) TelemetryError(source string) {
	m.errors.WithLabelValues(source).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes the metrics on /metrics at addr until the context is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger kitlog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			level.Warn(logger).Log("subsys", "metrics", "shutdown", err)
		}
	}()
	level.Info(logger).Log("subsys", "metrics", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
