package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/storefront/internal/reference"
)

func TestObserveResolution(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())

	m.ObserveResolution(reference.Result{ReferencedIDs: []int64{9, 5}, FallbackOnly: []int64{5}})
	m.ObserveResolution(reference.Result{ReferencedIDs: []int64{}})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbackOnly))
}

func TestObserveTurnAndCache(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())

	m.ObserveTurn(OutcomeOK)
	m.ObserveTurn(OutcomeOK)
	m.ObserveTurn(OutcomeGenerationFailed)
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveCacheLookup(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turns.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues(OutcomeGenerationFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
}

func TestObserveGeneration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	m.ObserveGeneration(150*time.Millisecond, nil)
	m.ObserveGeneration(time.Second, errors.New("timeout"))

	assert.Equal(t, 2, testutil.CollectAndCount(m.llmLatency))
	count, err := testutil.GatherAndCount(reg, "storefront_llm_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMustNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNew(reg)
	second := MustNew(reg)

	first.ObserveTurn(OutcomeOK)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.turns.WithLabelValues(OutcomeOK)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveResolution(reference.Result{ReferencedIDs: []int64{1}})
	m.ObserveTurn(OutcomeOK)
	m.ObserveGeneration(time.Second, nil)
	m.ObserveCacheLookup(true)
}
