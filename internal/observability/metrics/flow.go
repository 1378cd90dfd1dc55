// Package metrics exposes Prometheus counters for the signing flow. All
// methods are safe on a nil *FlowMetrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pdf_signer"

type FlowMetrics struct {
	registry *prometheus.Registry

	conversionTotal    *prometheus.CounterVec
	conversionDuration prometheus.Histogram
	fieldsCreated      *prometheus.CounterVec
	placeholdersDrop   prometheus.Counter
	handoffTotal       *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	toolCallsTotal     *prometheus.CounterVec
	toolCallDuration   *prometheus.HistogramVec
}

func NewFlowMetrics(service string) *FlowMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	conversionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "conversion",
			Name:        "runs_total",
			Help:        "Conversion runs by status.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	conversionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "conversion",
			Name:        "duration_seconds",
			Help:        "Conversion run duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
	)
	fieldsCreated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "conversion",
			Name:        "fields_created_total",
			Help:        "Form fields created by kind.",
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)
	placeholdersDrop := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "conversion",
			Name:        "placeholders_dropped_total",
			Help:        "Placeholders deleted without a replacement field.",
			ConstLabels: constLabels,
		},
	)
	handoffTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "handoff",
			Name:        "operations_total",
			Help:        "Handoff operations by stage and operation.",
			ConstLabels: constLabels,
		},
		[]string{"stage", "op"},
	)
	notificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "stage",
			Name:        "notifications_total",
			Help:        "User notifications by route and level.",
			ConstLabels: constLabels,
		},
		[]string{"route", "level"},
	)
	toolCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "mcp",
			Name:        "tool_calls_total",
			Help:        "MCP tool calls by tool and status.",
			ConstLabels: constLabels,
		},
		[]string{"tool", "status"},
	)
	toolCallDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "mcp",
			Name:        "tool_call_duration_seconds",
			Help:        "MCP tool call duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"tool"},
	)

	registry.MustRegister(
		conversionTotal,
		conversionDuration,
		fieldsCreated,
		placeholdersDrop,
		handoffTotal,
		notificationsTotal,
		toolCallsTotal,
		toolCallDuration,
	)

	return &FlowMetrics{
		registry:           registry,
		conversionTotal:    conversionTotal,
		conversionDuration: conversionDuration,
		fieldsCreated:      fieldsCreated,
		placeholdersDrop:   placeholdersDrop,
		handoffTotal:       handoffTotal,
		notificationsTotal: notificationsTotal,
		toolCallsTotal:     toolCallsTotal,
		toolCallDuration:   toolCallDuration,
	}
}

func (m *FlowMetrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveConversion records one conversion run
func (m *FlowMetrics) ObserveConversion(duration time.Duration, created map[string]int, dropped int, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.conversionTotal.WithLabelValues(status).Inc()
	m.conversionDuration.Observe(duration.Seconds())
	for kind, n := range created {
		m.fieldsCreated.WithLabelValues(kind).Add(float64(n))
	}
	if dropped > 0 {
		m.placeholdersDrop.Add(float64(dropped))
	}
}

// ObserveHandoff records a produce, consume or reset on a stage slot
func (m *FlowMetrics) ObserveHandoff(stage, op string) {
	if m == nil {
		return
	}
	m.handoffTotal.WithLabelValues(stage, op).Inc()
}

// ObserveNotification records a user-visible notification
func (m *FlowMetrics) ObserveNotification(route, level string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(route, level).Inc()
}

// ObserveToolCall records one MCP tool invocation
func (m *FlowMetrics) ObserveToolCall(tool string, duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	status := "success"
	if failed {
		status = "error"
	}
	m.toolCallsTotal.WithLabelValues(tool, status).Inc()
	m.toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}
