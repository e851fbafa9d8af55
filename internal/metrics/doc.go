// Package metrics collects request and configuration metrics for the service.
//
// It uses a channel-based event pipeline. Producers emit events without
// blocking; a dedicated goroutine folds them into:
//   - Request counts per route
//   - Response times with percentile calculations (P50, P95, P99)
//   - HTTP status code distribution
//   - Served configuration documents and failed response writes
//   - Settings store reloads
//
// Every event is also recorded in a Prometheus registry owned by the
// collector, so several collectors can live in one process.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	router.Use(collector.Middleware)
//	router.Handle("/metrics", collector.PrometheusHandler())
//	router.Get("/metrics/snapshot", collector.Handler())
//
//	collector.Emit(metrics.MetricEvent{
//		Type:     metrics.EventConfigServed,
//		Duration: 2 * time.Millisecond,
//		Bytes:    1024,
//	})
//
// The collector drains pending events on shutdown so none are lost.
package metrics
