package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelStage   = "stage"
	labelStatus  = "status"
	labelOutcome = "outcome"
)

// Metrics bundles the pipeline's Prometheus collectors. A nil *Metrics
// is a valid no-op receiver so the importer core stays usable without
// a registry wired in.
type Metrics struct {
	scrapeCalls    *prometheus.CounterVec
	scrapeDuration *prometheus.SummaryVec
	imports        *prometheus.CounterVec
	rehostImages   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scrapeCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importer_scrape_calls_total",
				Help: "Scraping provider calls by fallback stage and status.",
			},
			[]string{labelStage, labelStatus},
		),
		scrapeDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "importer_scrape_duration_seconds",
				Help:       "Scraping provider call duration.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{labelStage},
		),
		imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importer_imports_total",
				Help: "Import runs by outcome.",
			},
			[]string{labelOutcome},
		),
		rehostImages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importer_rehost_images_total",
				Help: "Image rehost attempts by status.",
			},
			[]string{labelStatus},
		),
	}

	reg.MustRegister(m.scrapeCalls, m.scrapeDuration, m.imports, m.rehostImages)
	return m
}

func (m *Metrics) ObserveScrape(stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.scrapeCalls.WithLabelValues(stage, status).Inc()
	m.scrapeDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ImportOutcome(outcome string) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RehostResult(status string) {
	if m == nil {
		return
	}
	m.rehostImages.WithLabelValues(status).Inc()
}
