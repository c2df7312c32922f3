// Package catmetrics mirrors cache.Stats into live Prometheus gauges,
// grounded on the teacher's lightweight Registry get-or-create pattern
// but backed by the real github.com/prometheus/client_golang collectors
// rather than a hand-rolled exposition-format writer.
package catmetrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry wraps a dedicated prometheus.Registry and get-or-creates
// per-(level,core) gauge vectors on first access, mirroring the
// teacher's metrics.Registry Counter/Gauge accessors.
type Registry struct {
	mu    sync.RWMutex
	reg   *prometheus.Registry
	gauge map[string]*prometheus.GaugeVec
}

// NewRegistry creates an empty Registry with its own prometheus
// collector set, isolated from prometheus.DefaultRegisterer so a
// simulator process can run multiple independent hierarchies (e.g. in
// tests) without collector name collisions.
func NewRegistry() *Registry {
	return &Registry{
		reg:   prometheus.NewRegistry(),
		gauge: make(map[string]*prometheus.GaugeVec),
	}
}

// Prometheus returns the underlying *prometheus.Registry, for wiring
// into promhttp.HandlerFor by cmd/catrace.
func (r *Registry) Prometheus() *prometheus.Registry { return r.reg }

// GaugeVec returns the gauge vector registered under name with the
// given label names, creating and registering it if it does not exist
// yet.
func (r *Registry) GaugeVec(name, help string, labelNames ...string) *prometheus.GaugeVec {
	r.mu.RLock()
	g, ok := r.gauge[name]
	r.mu.RUnlock()
	if ok {
		return g
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok = r.gauge[name]; ok {
		return g
	}
	g = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labelNames)
	r.reg.MustRegister(g)
	r.gauge[name] = g
	return g
}
