// Package metric provides Prometheus metrics for chatmesh nodes.
//
//   - prometheus.go: the Registry of counters and gauges updated by nodes,
//     and its HTTP handler
//   - collector.go: a collector sampling node state at scrape time
//
// Each node owns a Registry. Metrics are exposed at /metrics by the admin
// server.
package metric
