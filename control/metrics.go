// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for the reactor, socket driver, address registry and
// native memory. Collectors are process-wide and registered once on a private
// registry so embedding applications keep control of their default registry.

package control

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "netio"

// MetricsRegistry groups every collector exported by the module.
type MetricsRegistry struct {
	Registry *prometheus.Registry

	WaitCalls       *prometheus.CounterVec
	WaitInterrupts  *prometheus.CounterVec
	FiredEvents     *prometheus.CounterVec
	ChangeErrors    *prometheus.CounterVec
	IOResults       *prometheus.CounterVec
	SocketsCreated  *prometheus.CounterVec
	LiveAddresses   *prometheus.GaugeVec
	NativeBytes     *prometheus.GaugeVec
	ResolveFailures prometheus.Counter
}

var (
	metricsOnce sync.Once
	metrics     *MetricsRegistry
)

// Metrics returns the process-wide registry.
func Metrics() *MetricsRegistry {
	metricsOnce.Do(func() {
		metrics = NewMetricsRegistry()
	})
	return metrics
}

// NewMetricsRegistry builds and registers a fresh set of collectors.
func NewMetricsRegistry() *MetricsRegistry {
	reg := prometheus.NewRegistry()
	m := &MetricsRegistry{
		Registry: reg,
		WaitCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "wait_calls_total",
			Help: "submit-and-wait calls by backend and outcome.",
		}, []string{"backend", "outcome"}),
		WaitInterrupts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "wait_interrupts_total",
			Help: "Kernel waits interrupted by a signal and resumed with the remaining budget.",
		}, []string{"backend"}),
		FiredEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "fired_events_total",
			Help: "Fired event records written to caller event lists.",
		}, []string{"backend"}),
		ChangeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "change_errors_total",
			Help: "Change records rejected by the backend.",
		}, []string{"backend"}),
		IOResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport", Name: "io_results_total",
			Help: "Normalized send/recv/peek results.",
		}, []string{"op", "result"}),
		SocketsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport", Name: "sockets_created_total",
			Help: "Sockets created by type and blocking mode.",
		}, []string{"type", "mode"}),
		LiveAddresses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "address", Name: "live_records",
			Help: "Address records allocated and not yet freed.",
		}, []string{"kind"}),
		NativeBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pool", Name: "native_bytes",
			Help: "Native memory currently mapped, by tag.",
		}, []string{"tag"}),
		ResolveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "address", Name: "resolve_failures_total",
			Help: "Name resolutions that returned no usable address.",
		}),
	}
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		m.WaitCalls,
		m.WaitInterrupts,
		m.FiredEvents,
		m.ChangeErrors,
		m.IOResults,
		m.SocketsCreated,
		m.LiveAddresses,
		m.NativeBytes,
		m.ResolveFailures,
	)
	return m
}
