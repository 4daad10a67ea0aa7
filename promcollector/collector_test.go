package promcollector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gosmo"
	"github.com/hupe1980/gosmo/kernel"
	"github.com/hupe1980/gosmo/table"
)

func TestCollector(t *testing.T) {
	c := New("test")
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	c.RecordTraining(20*time.Millisecond, nil)
	c.RecordTraining(time.Millisecond, errors.New("boom"))
	c.RecordIterations(42, false)
	c.RecordCache(10, 3)
	c.RecordSupportVectors(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.trainings.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.trainings.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unconverged))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.supportVectors))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP test_kernel_cache_requests_total Kernel row cache lookups by result.
# TYPE test_kernel_cache_requests_total counter
test_kernel_cache_requests_total{result="hit"} 10
test_kernel_cache_requests_total{result="miss"} 3
`), "test_kernel_cache_requests_total")
	assert.NoError(t, err)

	assert.Equal(t, 8, testutil.CollectAndCount(c))
}

func TestCollectorWithTrain(t *testing.T) {
	c := New("gosmo")

	tbl, err := table.NewDenseFromRows([][]float64{{2, 0}, {0, 0}}, []float64{1, -1})
	require.NoError(t, err)

	_, err = gosmo.Train(context.Background(), tbl, kernel.Linear{}, gosmo.DefaultConfig(), gosmo.WithMetricsCollector(c))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.trainings.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.supportVectors))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.unconverged))
}
