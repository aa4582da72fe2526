package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveStore("put", 100, nil, 10*time.Millisecond)
	m.ObserveStore("put", 50, errors.New("boom"), time.Millisecond)
	m.ObserveStore("head", 0, nil, time.Millisecond)
	m.ExistenceCheckFailed()
	m.ExistenceCheckFailed()
	m.ObserveStage("resize", nil, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOps.WithLabelValues("put", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOps.WithLabelValues("put", "error")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.storeBytes.WithLabelValues("put")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.existenceFailure))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageOps.WithLabelValues("resize", "ok")))
}

func TestMetricsRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	first.ExistenceCheckFailed()
	second.ExistenceCheckFailed()
	assert.Equal(t, 2.0, testutil.ToFloat64(first.existenceFailure))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStore("put", 1, nil, time.Second)
		m.ExistenceCheckFailed()
		m.ObserveStage("upload", nil, time.Second)
	})
}
