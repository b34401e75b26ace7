package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecordMetric_SlidingWindow(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{MaxSamples: 2})
	rp.RecordMetric("foreground_ratio", 0.1)
	rp.RecordMetric("foreground_ratio", 0.3)
	rp.RecordMetric("foreground_ratio", 0.5)

	m := rp.Snapshot().Metrics["foreground_ratio"]
	assert.Equal(t, int64(3), m.Count)
	assert.InDelta(t, 0.4, m.Avg, 1e-9, "average covers the last two samples")
	assert.InDelta(t, 0.1, m.Min, 1e-9)
	assert.InDelta(t, 0.5, m.Max, 1e-9)
}

func TestStartOperation(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{})
	for i := 0; i < 3; i++ {
		stop := rp.StartOperation("segment")
		time.Sleep(time.Millisecond)
		stop()
	}

	op, ok := rp.Snapshot().Operations["segment"]
	require.True(t, ok)
	assert.Equal(t, int64(3), op.Count)
	assert.GreaterOrEqual(t, op.Min, time.Millisecond)
	assert.LessOrEqual(t, op.Min, op.Avg)
	assert.LessOrEqual(t, op.Avg, op.Max)
}

func TestStop_EmitsFinalReport(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rp := NewRuntimeProfiler(ProfilingOptions{ReportInterval: time.Hour, Logger: zap.New(core)})

	rp.Stop()
	assert.Zero(t, logs.Len(), "stopping an idle profiler is a no-op")

	rp.Start()
	rp.Start()
	rp.RecordMetric("foreground_ratio", 0.25)
	rp.StartOperation("update")()
	rp.Stop()

	assert.Equal(t, 1, logs.FilterMessage("profiler status").Len())
	assert.Equal(t, 1, logs.FilterMessage("operation timing").Len())
	metric := logs.FilterMessage("metric").All()
	require.Len(t, metric, 1)
	assert.Equal(t, "foreground_ratio", metric[0].ContextMap()["metric"])
}
