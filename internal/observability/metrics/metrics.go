package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the report pipeline.
type PipelineMetrics struct {
	submissionsTotal  *prometheus.CounterVec
	generationTotal   *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	blockFallbacks    prometheus.Counter
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reports",
			Subsystem: "pipeline",
			Name:      "submissions_total",
			Help:      "Total form submissions handled",
		}, []string{"status"}),
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reports",
			Subsystem: "generation",
			Name:      "jobs_total",
			Help:      "Total generation jobs by outcome",
		}, []string{"status"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reports",
			Subsystem: "generation",
			Name:      "latency_seconds",
			Help:      "Latency of content generation jobs",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		blockFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reports",
			Subsystem: "generation",
			Name:      "block_fallbacks_total",
			Help:      "Content blocks that fell back to example text",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.generationTotal, m.generationLatency, m.blockFallbacks)
	return m
}

func (m *PipelineMetrics) ObserveSubmission(status string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveGeneration(status string) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveGenerationLatency(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.generationLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *PipelineMetrics) ObserveBlockFallback() {
	if m == nil {
		return
	}
	m.blockFallbacks.Inc()
}
