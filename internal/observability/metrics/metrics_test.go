package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetricsRegisterAndObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.ObserveSubmission("processed")
	m.ObserveSubmission("duplicate")
	m.ObserveGeneration("completed")
	m.ObserveGenerationLatency("bedrock", 1.2)
	m.ObserveBlockFallback()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["reports_pipeline_submissions_total"])
	assert.True(t, names["reports_generation_jobs_total"])
	assert.True(t, names["reports_generation_latency_seconds"])
	assert.True(t, names["reports_generation_block_fallbacks_total"])
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *PipelineMetrics
	m.ObserveSubmission("processed")
	m.ObserveGeneration("failed")
	m.ObserveGenerationLatency("gemini", 0.1)
	m.ObserveBlockFallback()
}
