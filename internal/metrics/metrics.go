// Package metrics exposes prometheus counters for the pass lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service counters.  A nil *Metrics is valid and
// records nothing, so tests and CLI commands can skip registration.
type Metrics struct {
	registry *prometheus.Registry

	Grants           prometheus.Counter
	Returns          prometheus.Counter
	CheckpointsOut   prometheus.Counter
	Conflicts        prometheus.Counter
	ActivationRuns   *prometheus.CounterVec // label: result=ok|error
	ActivationGrants prometheus.Counter
}

// New registers the counters on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Grants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "passd", Name: "passes_granted_total",
			Help: "Passes granted, manually or by auto-activation.",
		}),
		Returns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "passd", Name: "passes_returned_total",
			Help: "Passes closed on return.",
		}),
		CheckpointsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "passd", Name: "passes_out_total",
			Help: "Passes marked OUT at the checkpoint.",
		}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "passd", Name: "grant_conflicts_total",
			Help: "Grant attempts rejected because the subject already holds an open pass.",
		}),
		ActivationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passd", Name: "auto_activation_runs_total",
			Help: "Auto-activation runs by result.",
		}, []string{"result"}),
		ActivationGrants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "passd", Name: "auto_activation_grants_total",
			Help: "Passes granted by auto-activation.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Grants, m.Returns, m.CheckpointsOut, m.Conflicts, m.ActivationRuns, m.ActivationGrants,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) IncGrant() {
	if m != nil {
		m.Grants.Inc()
	}
}

func (m *Metrics) IncReturn() {
	if m != nil {
		m.Returns.Inc()
	}
}

func (m *Metrics) IncOut() {
	if m != nil {
		m.CheckpointsOut.Inc()
	}
}

func (m *Metrics) IncConflict() {
	if m != nil {
		m.Conflicts.Inc()
	}
}

// ObserveActivation records one auto-activation run.
func (m *Metrics) ObserveActivation(granted int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ActivationRuns.WithLabelValues("error").Inc()
		return
	}
	m.ActivationRuns.WithLabelValues("ok").Inc()
	m.ActivationGrants.Add(float64(granted))
}
