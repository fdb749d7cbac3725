// Package metrics Prometheus 指标, 所有方法对 nil 接收者安全
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 单条车辆的处理结果
const (
	OutcomeSaved   = "saved"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
	OutcomeMissing = "missing"
)

type Metrics struct {
	Registry           *prometheus.Registry
	PagesTotal         *prometheus.CounterVec
	ListingsTotal      *prometheus.CounterVec
	PublishedTotal     prometheus.Counter
	WebhookFailures    prometheus.Counter
	FilterStepFailures *prometheus.CounterVec
	PageDuration       prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newest_pages_total",
			Help: "Result pages checkpointed, by whether listings were found.",
		},
		[]string{"result"},
	)
	listings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newest_listings_total",
			Help: "Listings attempted, by outcome.",
		},
		[]string{"outcome"},
	)
	published := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newest_records_published_total",
			Help: "Records appended to the dataset sink.",
		},
	)
	webhookFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newest_webhook_failures_total",
			Help: "Webhook deliveries that failed or returned non-2xx.",
		},
	)
	filterFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newest_filter_step_failures_total",
			Help: "Search filter steps that could not be applied.",
		},
		[]string{"step"},
	)
	pageDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newest_page_duration_seconds",
			Help:    "Wall time spent on one result page.",
			Buckets: prometheus.ExponentialBuckets(5, 2, 8),
		},
	)

	registry.MustRegister(pages, listings, published, webhookFailures, filterFailures, pageDuration)

	return &Metrics{
		Registry:           registry,
		PagesTotal:         pages,
		ListingsTotal:      listings,
		PublishedTotal:     published,
		WebhookFailures:    webhookFailures,
		FilterStepFailures: filterFailures,
		PageDuration:       pageDuration,
	}
}

// Handler /metrics 端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncPage(empty bool) {
	if m == nil {
		return
	}
	result := "listings"
	if empty {
		result = "empty"
	}
	m.PagesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncListing(outcome string) {
	if m == nil {
		return
	}
	m.ListingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncPublished() {
	if m == nil {
		return
	}
	m.PublishedTotal.Inc()
}

func (m *Metrics) IncWebhookFailure() {
	if m == nil {
		return
	}
	m.WebhookFailures.Inc()
}

func (m *Metrics) IncFilterFailure(step string) {
	if m == nil {
		return
	}
	m.FilterStepFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) ObservePage(seconds float64) {
	if m == nil {
		return
	}
	m.PageDuration.Observe(seconds)
}
