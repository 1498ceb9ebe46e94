package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
)

func gather(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func counterWithLabel(f *dto.MetricFamily, name, value string) float64 {
	for _, metric := range f.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == value {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Attempt(domain.ClassConnection)
	m.Attempt(domain.ClassConnection)
	m.Attempt(domain.ClassNone)
	m.Failover()
	m.Exhausted()
	d := domain.NewDecision()
	d.ExitCode = domain.ExitBlock
	d.Source = domain.SourceDecision
	m.Decision(d)
	m.ObserveDispatch(120 * time.Millisecond)

	families := gather(t, m)

	attempts := families["hookrelay_dispatch_attempts_total"]
	require.NotNil(t, attempts)
	assert.Equal(t, 2.0, counterWithLabel(attempts, "class", "connection"))
	assert.Equal(t, 1.0, counterWithLabel(attempts, "class", "success"))

	assert.Equal(t, 1.0, families["hookrelay_endpoint_failovers_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 1.0, families["hookrelay_dispatch_exhausted_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 1.0, counterWithLabel(families["hookrelay_decisions_total"], "source", "decision"))
	assert.EqualValues(t, 1, families["hookrelay_dispatch_duration_seconds"].GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Attempt(domain.ClassTimeout)
	m.Failover()
	m.Exhausted()
	m.Decision(domain.NewDecision())
	m.ObserveDispatch(time.Second)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("/nonexistent/metrics.prom"))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.Attempt(domain.ClassServerError)

	path := filepath.Join(t.TempDir(), "hookrelay.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `hookrelay_dispatch_attempts_total{class="server_error"} 1`)
}
