package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// APIMetrics records the outgoing API requests of a client in its own
// registry.
type APIMetrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// RequestCount is the number of requests sent for one label combination
type RequestCount struct {
	Host       string
	Method     string
	StatusCode string
	Count      float64
}

func NewAPIMetrics() *APIMetrics {
	m := &APIMetrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otc_api_requests_total",
				Help: "API requests sent, by host, method and status code",
			},
			[]string{"host", "method", "status_code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "otc_api_request_duration_seconds",
				Help:    "API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host", "method"},
		),
	}
	m.registry.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// Registry exposes the collectors, e.g. for testutil or a push gateway
func (m *APIMetrics) Registry() *prometheus.Registry {
	return m.registry
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// RoundTripper wraps next so that every request it sends is counted and
// timed. Transport errors are counted with status code "error".
func (m *APIMetrics) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()

		resp, err := next.RoundTrip(r)

		statusCode := "error"
		if err == nil {
			statusCode = strconv.Itoa(resp.StatusCode)
		}
		m.requestsTotal.WithLabelValues(r.URL.Host, r.Method, statusCode).Inc()
		m.requestDuration.WithLabelValues(r.URL.Host, r.Method).Observe(time.Since(start).Seconds())

		return resp, err
	})
}

// Requests returns the request counters sorted by host, method and status
func (m *APIMetrics) Requests() ([]RequestCount, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	var counts []RequestCount
	for _, family := range families {
		if family.GetName() != "otc_api_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := labelMap(metric.GetLabel())
			counts = append(counts, RequestCount{
				Host:       labels["host"],
				Method:     labels["method"],
				StatusCode: labels["status_code"],
				Count:      metric.GetCounter().GetValue(),
			})
		}
	}

	sort.Slice(counts, func(i, j int) bool {
		a, b := counts[i], counts[j]
		if a.Host != b.Host {
			return a.Host < b.Host
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.StatusCode < b.StatusCode
	})
	return counts, nil
}

func labelMap(pairs []*dto.LabelPair) map[string]string {
	labels := make(map[string]string, len(pairs))
	for _, p := range pairs {
		labels[p.GetName()] = p.GetValue()
	}
	return labels
}
