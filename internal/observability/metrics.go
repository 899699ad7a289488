package observability

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics counts translations. All methods are safe on a nil *Metrics.
type Metrics struct {
	translations      *prometheus.CounterVec
	annotatorFailures prometheus.Counter
	conditions        prometheus.Histogram
}

// NewMetrics registers the translation metrics with reg. A nil reg creates
// a private registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		translations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nl2sql_translations_total",
				Help: "Total number of translations by intent type.",
			},
			[]string{"intent"},
		),
		annotatorFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nl2sql_annotator_failures_total",
				Help: "Total number of failed annotator calls.",
			},
		),
		conditions: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nl2sql_query_conditions",
				Help:    "Number of WHERE conditions per translated query.",
				Buckets: []float64{0, 1, 2, 3, 5, 8},
			},
		),
	}
	for _, c := range []prometheus.Collector{m.translations, m.annotatorFailures, m.conditions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveTranslation records one finished translation.
func (m *Metrics) ObserveTranslation(intentType string, conditions int) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(intentType).Inc()
	m.conditions.Observe(float64(conditions))
}

// ObserveAnnotatorFailure records one failed annotator call.
func (m *Metrics) ObserveAnnotatorFailure() {
	if m == nil {
		return
	}
	m.annotatorFailures.Inc()
}

// WriteText writes every metric family gathered from g in the Prometheus
// text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
