package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() {
		Register(reg)
		Register(reg)
		Register(prometheus.NewRegistry())
	})

	MatchRunsTotal.WithLabelValues("false").Inc()
	BatchJobsTotal.WithLabelValues("ok").Inc()
	ResultsPerRun.Observe(2)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["remedymatch_match_runs_total"])
	assert.True(t, names["remedymatch_batch_jobs_total"])
	assert.True(t, names["remedymatch_results_per_run"])
}

func TestCounterLabels(t *testing.T) {
	before := testutil.ToFloat64(MappingsTotal.WithLabelValues("skipped"))
	MappingsTotal.WithLabelValues("skipped").Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(MappingsTotal.WithLabelValues("skipped")))
}
