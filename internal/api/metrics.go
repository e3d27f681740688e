package api

import (
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	requestsMetric = "mailflow_api_requests_total"
	durationMetric = "mailflow_api_request_duration_seconds"
)

// Metrics records gateway calls on a private prometheus registry
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the gateway collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: requestsMetric,
				Help: "MailFlow backend requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    durationMetric,
				Help:    "MailFlow backend request latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"method", "route"},
		),
	}
	m.registry.MustRegister(m.requests, m.duration)
	return m
}

// Registry exposes the registry for a /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest implements Observer
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	statusLabel := "error"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(method, route, statusLabel).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RouteStat summarizes the calls made to one route
type RouteStat struct {
	Method   string
	Route    string
	Calls    uint64
	Failures uint64
	Mean     time.Duration
}

// Snapshot gathers the registry into per-route totals, sorted by route
func (m *Metrics) Snapshot() ([]RouteStat, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*RouteStat)
	get := func(labels []*dto.LabelPair) *RouteStat {
		var method, route string
		for _, l := range labels {
			switch l.GetName() {
			case "method":
				method = l.GetValue()
			case "route":
				route = l.GetValue()
			}
		}
		key := method + " " + route
		if s, ok := stats[key]; ok {
			return s
		}
		s := &RouteStat{Method: method, Route: route}
		stats[key] = s
		return s
	}

	for _, fam := range families {
		switch fam.GetName() {
		case requestsMetric:
			for _, metric := range fam.GetMetric() {
				s := get(metric.GetLabel())
				n := uint64(metric.GetCounter().GetValue())
				s.Calls += n
				if status := labelValue(metric.GetLabel(), "status"); !isSuccessStatus(status) {
					s.Failures += n
				}
			}
		case durationMetric:
			for _, metric := range fam.GetMetric() {
				h := metric.GetHistogram()
				if h.GetSampleCount() == 0 {
					continue
				}
				mean := h.GetSampleSum() / float64(h.GetSampleCount())
				get(metric.GetLabel()).Mean = time.Duration(mean * float64(time.Second))
			}
		}
	}

	out := make([]RouteStat, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Route == out[j].Route {
			return out[i].Method < out[j].Method
		}
		return out[i].Route < out[j].Route
	})
	return out, nil
}

func labelValue(labels []*dto.LabelPair, name string) string {
	for _, l := range labels {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func isSuccessStatus(status string) bool {
	code, err := strconv.Atoi(status)
	return err == nil && code >= 200 && code < 300
}
