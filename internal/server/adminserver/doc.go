// Package adminserver serves the operational HTTP endpoints of a node:
//
//	GET /healthz   liveness
//	GET /status    JSON snapshot of the node and build information
//	GET /metrics   Prometheus metrics
package adminserver
