// Package metrics exports connectivity and web server metrics for Prometheus.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hidraeco/gatewayd/connectivity"
)

var states = []connectivity.State{
	connectivity.StateOff,
	connectivity.StateStationOnly,
	connectivity.StateAccessPointOnly,
	connectivity.StateStationAndAccessPoint,
}

var _ connectivity.Observer = (*Collector)(nil)

// Collector implements connectivity.Observer on top of Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	State           *prometheus.GaugeVec
	ModeChanges     prometheus.Counter
	AttemptTimeouts prometheus.Counter
	Connects        *prometheus.CounterVec
	Scans           *prometheus.CounterVec
	ScanResults     prometheus.Gauge

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// New registers the gateway metrics against reg, defaulting to the global
// Prometheus registry when nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_connectivity_state",
			Help: "1 for the current connectivity state, 0 for the others.",
		}, []string{"state"}),
		ModeChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_mode_changes_total",
			Help: "Radio mode commands issued.",
		}),
		AttemptTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_connect_attempt_timeouts_total",
			Help: "Auto-connect attempts that timed out.",
		}),
		Connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_connects_total",
			Help: "Finished connect protocols, labeled by kind and result.",
		}, []string{"kind", "result"}),
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_scans_total",
			Help: "Discovery scans, labeled by result.",
		}, []string{"result"}),
		ScanResults: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_scan_networks",
			Help: "Networks seen by the last successful scan.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Handled web requests, labeled by route and status code.",
		}, []string{"route", "code"}),
		HTTPDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "Web request latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
		}, []string{"route"}),
	}

	for _, col := range []prometheus.Collector{
		c.State, c.ModeChanges, c.AttemptTimeouts, c.Connects, c.Scans,
		c.ScanResults, c.HTTPRequests, c.HTTPDurations,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("could not register collector: %w", err)
		}
	}
	c.setState(connectivity.StateOff)
	return c, nil
}

func (c *Collector) setState(current connectivity.State) {
	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1
		}
		c.State.WithLabelValues(s.String()).Set(v)
	}
}

func (c *Collector) ModeChanged(from connectivity.State, to connectivity.State) {
	c.ModeChanges.Inc()
	c.setState(to)
}

func (c *Collector) AttemptTimedOut(attempt uint) {
	c.AttemptTimeouts.Inc()
}

func (c *Collector) Connected(kind connectivity.AttemptKind) {
	c.Connects.WithLabelValues(kind.String(), "success").Inc()
}

func (c *Collector) ConnectFailed(kind connectivity.AttemptKind) {
	c.Connects.WithLabelValues(kind.String(), "failure").Inc()
}

func (c *Collector) Scanned(count int, err error) {
	if err != nil {
		c.Scans.WithLabelValues("failure").Inc()
		return
	}
	c.Scans.WithLabelValues("success").Inc()
	c.ScanResults.Set(float64(count))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument records request counts and durations for next under route.
func (c *Collector) Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		c.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		c.HTTPDurations.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
