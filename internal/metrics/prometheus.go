package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "inverse"

var latencyBuckets = []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000}

type promMetrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	configsServed prometheus.Counter
	configBytes   prometheus.Counter
	writeFailures prometheus.Counter
	reloads       *prometheus.CounterVec
}

func newPromMetrics() *promMetrics {
	pm := &promMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests processed, partitioned by route and status code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP response latency.",
			Buckets:   latencyBuckets,
		}, []string{"route"}),
		configsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "configs_served_total",
			Help:      "Number of web client configuration documents written.",
		}),
		configBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_bytes_total",
			Help:      "Bytes of web client configuration written.",
		}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_write_failures_total",
			Help:      "Number of configuration responses that could not be written.",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "properties_reloads_total",
			Help:      "Number of settings store reloads, partitioned by result.",
		}, []string{"result"}),
	}

	pm.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		pm.requests,
		pm.latency,
		pm.configsServed,
		pm.configBytes,
		pm.writeFailures,
		pm.reloads,
	)

	return pm
}

func (pm *promMetrics) observe(event MetricEvent) {
	switch event.Type {
	case EventRequestCompleted:
		pm.requests.WithLabelValues(event.Route, strconv.Itoa(event.StatusCode)).Inc()
		pm.latency.WithLabelValues(event.Route).Observe(float64(event.Duration.Nanoseconds()) * 1e-6)

	case EventConfigServed:
		pm.configsServed.Inc()
		pm.configBytes.Add(float64(event.Bytes))

	case EventConfigWriteFailed:
		pm.writeFailures.Inc()

	case EventPropertiesReloaded:
		result := "success"
		if event.Failed {
			result = "failure"
		}
		pm.reloads.WithLabelValues(result).Inc()
	}
}
