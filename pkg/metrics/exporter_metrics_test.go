package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporterMetrics(t *testing.T) {
	reg := NewPromRegistry(nil)
	m := NewMetricFactory(reg).NewExporterMetrics()

	m.QueryFailed("pools")
	m.QueryFailed("pools")
	m.QueryFailed("connect")
	m.Reloaded(true)
	m.Reloaded(false)
	m.Reloaded(false)
	m.SetTargets(3)
	m.ObserveCollect(10 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueryErrors.WithLabelValues("pools")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryErrors.WithLabelValues("connect")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reloads.WithLabelValues("failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Targets))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP pgbouncer_exporter_reloads_total Total number of configuration reloads by result
# TYPE pgbouncer_exporter_reloads_total counter
pgbouncer_exporter_reloads_total{result="failure"} 2
pgbouncer_exporter_reloads_total{result="success"} 1
`), "pgbouncer_exporter_reloads_total")
	require.NoError(t, err)
}

func TestExporterMetricsNilSafe(t *testing.T) {
	var m *ExporterMetrics
	assert.NotPanics(t, func() {
		m.QueryFailed("stats")
		m.Reloaded(true)
		m.SetTargets(1)
		m.ObserveCollect(time.Second)
	})
}
