// Package metrics exposes crawler and HTTP measurements to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CrawlsTotal         *prometheus.CounterVec
	CrawlDuration       *prometheus.HistogramVec
	AttemptFailures     *prometheus.CounterVec
	ProductsPerCrawl    *prometheus.HistogramVec
	CacheLookups        *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the metrics on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		CrawlsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_crawls_total",
			Help: "Total number of crawl requests by outcome.",
		}, []string{"outcome"}),
		CrawlDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crawler_crawl_duration_seconds",
			Help:    "Duration of crawl requests including retries.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		}, []string{"outcome"}),
		AttemptFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_attempt_failures_total",
			Help: "Failed crawl attempts by error kind.",
		}, []string{"kind"}),
		ProductsPerCrawl: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crawler_products_extracted",
			Help:    "Products returned per successful crawl.",
			Buckets: []float64{1, 5, 10, 20, 50, 100},
		}, []string{"mode"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_cache_lookups_total",
			Help: "Result cache lookups by result.",
		}, []string{"result"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		gatherer: reg,
	}
}

func (m *Metrics) CrawlFinished(outcome string, d time.Duration) {
	m.CrawlsTotal.WithLabelValues(outcome).Inc()
	m.CrawlDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) AttemptFailed(kind string) {
	m.AttemptFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ProductsExtracted(mode string, count int) {
	m.ProductsPerCrawl.WithLabelValues(mode).Observe(float64(count))
}

func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware counts requests by chi route pattern so path parameters do not
// explode the label space.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, path, strconv.Itoa(status)}
		m.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
		m.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}
