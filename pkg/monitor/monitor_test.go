package monitor

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupStats(t *testing.T) {
	ls := NewLookupStats()
	assert.Equal(t, 0.0, ls.HitRate())
	assert.Equal(t, 0.0, ls.AvgProbes())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ls.RecordLookup(4)
			if i%4 != 0 {
				ls.RecordHit()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, uint64(100), ls.Lookups)
	assert.InDelta(t, 0.75, ls.HitRate(), 1e-12)
	assert.Equal(t, 4.0, ls.AvgProbes())
}

func TestTrainingMetricsGather(t *testing.T) {
	m := NewTrainingMetrics()
	m.RecordModel("prefix_bucketed", 20*time.Millisecond, 7, true)
	m.RecordModel("prefix_bucketed", 10*time.Millisecond, 3, true)
	m.RecordModel("radix", time.Millisecond, 0, false)
	m.RecordBuckets(12)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			label := ""
			for _, lp := range metric.GetLabel() {
				label = lp.GetValue()
			}
			key := mf.GetName() + "/" + label
			switch {
			case metric.GetCounter() != nil:
				values[key] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[key] = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				values[key] = float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, 2.0, values["rmi_models_trained_total/prefix_bucketed"])
	assert.Equal(t, 1.0, values["rmi_models_trained_total/radix"])
	assert.Equal(t, 3.0, values["rmi_model_error_bound/prefix_bucketed"])
	_, hasRadixBound := values["rmi_model_error_bound/radix"]
	assert.False(t, hasRadixBound)
	assert.Equal(t, 2.0, values["rmi_training_duration_seconds/prefix_bucketed"])
	assert.Equal(t, 12.0, values["rmi_buckets_trained_total/"])
}

func TestWriteTextfile(t *testing.T) {
	m := NewTrainingMetrics()
	m.RecordModel("linear", time.Millisecond, 0, false)

	path := filepath.Join(t.TempDir(), "rmi.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `rmi_models_trained_total{kind="linear"} 1`))
}
