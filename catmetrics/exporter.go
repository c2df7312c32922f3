package catmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an http.Handler serving r's metrics in Prometheus
// text exposition format, suitable for mounting at "/metrics" (the
// teacher's PrometheusExporter served the same path; here the real
// promhttp package does the formatting).
func Handler(r *Registry) http.Handler {
	return promhttp.HandlerFor(r.Prometheus(), promhttp.HandlerOpts{})
}

// ListenAndServe starts a minimal HTTP server exposing r's metrics at
// addr + "/metrics" until ctx-driven shutdown is handled by the caller
// (cmd/catrace runs this in its own goroutine and relies on process
// exit to tear it down, matching spec §5's "no cancellation model").
func ListenAndServe(addr string, r *Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(r))
	return http.ListenAndServe(addr, mux)
}
