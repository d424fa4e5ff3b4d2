package server

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/fieldbook/pkg/observability"
)

// Metrics implements the observability hooks with Prometheus collectors.
type Metrics struct {
	generated    prometheus.Counter
	generateErrs prometheus.Counter
	generateDur  prometheus.Histogram
	plots        prometheus.Histogram
	verified     *prometheus.CounterVec
	echoes       prometheus.Counter
	rendered     *prometheus.CounterVec
	renderDur    prometheus.Histogram
	cacheEvents  *prometheus.CounterVec
	cacheBytes   *prometheus.CounterVec
	requests     *prometheus.CounterVec
	requestDur   *prometheus.HistogramVec
	handlerErrs  *prometheus.CounterVec
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldbook", Name: "layouts_generated_total",
			Help: "Layouts generated.",
		}),
		generateErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldbook", Name: "layout_errors_total",
			Help: "Layout requests rejected by generation.",
		}),
		generateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fieldbook", Name: "generate_duration_seconds",
			Help:    "Time spent generating a layout.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		plots: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fieldbook", Name: "layout_plots",
			Help:    "Plots per generated layout.",
			Buckets: prometheus.ExponentialBuckets(4, 4, 8),
		}),
		verified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldbook", Name: "verifications_total",
			Help: "Field books verified, by outcome.",
		}, []string{"ok"}),
		echoes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldbook", Name: "echoes_total",
			Help: "Plots repeating a position and genotype across blocks.",
		}),
		rendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldbook", Name: "renders_total",
			Help: "Render calls, by outcome.",
		}, []string{"outcome"}),
		renderDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fieldbook", Name: "render_duration_seconds",
			Help:    "Time spent rendering artifacts.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldbook", Name: "cache_events_total",
			Help: "Cache hits, misses and writes.",
		}, []string{"kind", "event"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldbook", Name: "cache_written_bytes_total",
			Help: "Bytes written to the cache.",
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldbook", Name: "http_requests_total",
			Help: "HTTP requests, by route and status.",
		}, []string{"method", "route", "status"}),
		requestDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fieldbook", Name: "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		handlerErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldbook", Name: "http_errors_total",
			Help: "Handler errors, by route.",
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.generated, m.generateErrs, m.generateDur, m.plots,
		m.verified, m.echoes, m.rendered, m.renderDur,
		m.cacheEvents, m.cacheBytes,
		m.requests, m.requestDur, m.handlerErrs,
	)
	return m
}

// Install registers m as the process-wide hooks.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func (m *Metrics) OnGenerateStart(context.Context, int, int) {}

func (m *Metrics) OnGenerateComplete(_ context.Context, plots int, d time.Duration, err error) {
	if err != nil {
		m.generateErrs.Inc()
		return
	}
	m.generated.Inc()
	m.generateDur.Observe(d.Seconds())
	m.plots.Observe(float64(plots))
}

func (m *Metrics) OnVerifyComplete(_ context.Context, ok bool, echoes int, _ time.Duration) {
	m.verified.WithLabelValues(strconv.FormatBool(ok)).Inc()
	m.echoes.Add(float64(echoes))
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.rendered.WithLabelValues(outcome).Inc()
	m.renderDur.Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, kind string) {
	m.cacheEvents.WithLabelValues(kind, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, kind string) {
	m.cacheEvents.WithLabelValues(kind, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, kind string, size int) {
	m.cacheEvents.WithLabelValues(kind, "set").Inc()
	m.cacheBytes.WithLabelValues(kind).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDur.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, method, route string, _ error) {
	m.handlerErrs.WithLabelValues(method, route).Inc()
}
