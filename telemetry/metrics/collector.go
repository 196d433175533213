// Package metrics concentra as métricas Prometheus do gateway.
//
// O Collector usa um registry próprio (não o global) para que testes e
// múltiplas instâncias não colidam.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"genai-gateway/gateway/outcome"
	"genai-gateway/middleware/ratelimit/domain"
)

const namespace = "genai_gateway"

type Collector struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	decisions        *prometheus.CounterVec
	trackedKeys      prometheus.Gauge
}

// NewCollector registra as métricas em registry (nil cria um novo).
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled by the gateway, by terminal outcome.",
		}, []string{"outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of the upstream generateContent call.",
			// chamadas de LLM: 100ms a 30s
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"outcome"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limit decisions.",
		}, []string{"decision"}),
		trackedKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "tracked_identities",
			Help:      "Identities with recent requests after the last sweep.",
		}),
	}
	registry.MustRegister(c.requests, c.upstreamDuration, c.decisions, c.trackedKeys)

	// séries zeradas para todos os outcomes desde o início
	for _, code := range outcome.All() {
		c.requests.WithLabelValues(code.String())
	}
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Outcome conta uma requisição finalizada.
func (c *Collector) Outcome(code outcome.Code) {
	c.requests.WithLabelValues(code.String()).Inc()
}

// UpstreamLatency observa a duração de uma chamada ao upstream.
func (c *Collector) UpstreamLatency(code outcome.Code, d time.Duration) {
	c.upstreamDuration.WithLabelValues(code.String()).Observe(d.Seconds())
}

// SetTrackedIdentities é usado como hook do janitor do rate limit.
func (c *Collector) SetTrackedIdentities(n int) {
	c.trackedKeys.Set(float64(n))
}

// Record implementa domain.StatsStore (sem label por identidade: cardinalidade).
func (c *Collector) Record(_ context.Context, ev domain.StatsEvent) error {
	decision := "denied"
	if ev.Allowed {
		decision = "allowed"
	}
	c.decisions.WithLabelValues(decision).Inc()
	return nil
}

// Handler expõe o registry no formato Prometheus/OpenMetrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
