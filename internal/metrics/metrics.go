// ABOUTME: Prometheus collectors for protocol, tool, and downstream API activity
// ABOUTME: Recorder is the narrow interface the dispatcher, engine, and adapter depend on

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives observations from the core components.
type Recorder interface {
	ObserveRPC(method string, err error)
	ObserveToolCall(tool string, duration time.Duration, err error)
	ObserveAPIRequest(operation string, status int, duration time.Duration)
}

// Noop discards every observation.
type Noop struct{}

func (Noop) ObserveRPC(string, error)                     {}
func (Noop) ObserveToolCall(string, time.Duration, error) {}
func (Noop) ObserveAPIRequest(string, int, time.Duration) {}

// Prometheus records observations into a dedicated registry.
type Prometheus struct {
	registry    *prometheus.Registry
	rpcRequests *prometheus.CounterVec
	toolCalls   *prometheus.CounterVec
	toolLatency *prometheus.HistogramVec
	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
}

// NewPrometheus creates the collectors on a fresh registry together with the
// Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Prometheus{
		registry: registry,
		rpcRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "miro_mcp_rpc_requests_total",
				Help: "Total number of JSON-RPC requests by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "miro_mcp_tool_calls_total",
				Help: "Total number of tool invocations by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		toolLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "miro_mcp_tool_call_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool"},
		),
		apiRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "miro_mcp_api_requests_total",
				Help: "Total number of Miro REST requests by operation and HTTP status",
			},
			[]string{"operation", "status"},
		),
		apiLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "miro_mcp_api_request_duration_seconds",
				Help:    "Duration of Miro REST requests in seconds",
				Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
	}
}

func (p *Prometheus) ObserveRPC(method string, err error) {
	p.rpcRequests.WithLabelValues(method, outcome(err)).Inc()
}

func (p *Prometheus) ObserveToolCall(tool string, duration time.Duration, err error) {
	p.toolCalls.WithLabelValues(tool, outcome(err)).Inc()
	p.toolLatency.WithLabelValues(tool).Observe(duration.Seconds())
}

// ObserveAPIRequest records one downstream call. Status 0 means the request
// never produced a response.
func (p *Prometheus) ObserveAPIRequest(operation string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	p.apiRequests.WithLabelValues(operation, label).Inc()
	p.apiLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

var (
	_ Recorder = Noop{}
	_ Recorder = (*Prometheus)(nil)
)
