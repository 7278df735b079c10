package service

import (
	"net/http"
	"strconv"
	"time"

	"followscan/pkg/messages"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "followscan"

// Metrics exposes Prometheus metrics for scans, stored accounts and HTTP requests
type Metrics struct {
	registry        *prometheus.Registry
	scans           *prometheus.CounterVec
	accountsFound   *prometheus.CounterVec
	accountsStored  *prometheus.GaugeVec
	messages        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "finished_total",
			Help:      "Finished scans by platform and result.",
		}, []string{"platform", "result"}),
		accountsFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "accounts_found_total",
			Help:      "Accounts matched as inactive or not following back.",
		}, []string{"platform"}),
		accountsStored: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "accounts",
			Help:      "Accounts currently stored per platform.",
		}, []string{"platform"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "messages_total",
			Help:      "Messages routed through the hub by type.",
		}, []string{"type"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests.",
		}, []string{"method", "path", "status"}),
	}

	for _, c := range []prometheus.Collector{
		m.scans, m.accountsFound, m.accountsStored, m.messages, m.requestDuration, m.requestTotal,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next to record HTTP metrics. path labels the route
// so ids in URLs do not explode cardinality.
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		status := strconv.Itoa(rw.status)
		m.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		m.requestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) observe(msg messages.Message) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(string(msg.Type())).Inc()

	switch v := msg.(type) {
	case messages.AccountFound:
		m.accountsFound.WithLabelValues(string(v.Platform)).Inc()
	case messages.ScanComplete:
		result := "completed"
		if v.Partial {
			result = "stopped"
		}
		m.scans.WithLabelValues(string(v.Platform), result).Inc()
	case messages.ScanError:
		m.scans.WithLabelValues(string(v.Platform), "error").Inc()
	}
}

func (m *Metrics) setStored(platform string, n int) {
	if m == nil {
		return
	}
	m.accountsStored.WithLabelValues(platform).Set(float64(n))
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers behind the instrumentation flush
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
