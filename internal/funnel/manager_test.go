package funnel

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleaningpros/review-funnel/internal/observability/metrics"
	"github.com/cleaningpros/review-funnel/internal/reviews"
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(Config{
		Reviews: reviews.NewInMemoryRepository(),
		Metrics: metrics.NewFunnelMetrics(prometheus.NewRegistry()),
	})
	rec := &recorder{}

	a := m.Open(rec, rec, rec)
	b := m.Open(rec, rec, rec)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, m.Len())

	got, ok := m.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	require.NoError(t, m.Close(a.ID()))
	assert.ErrorIs(t, m.Close(a.ID()), ErrSessionNotFound)
	assert.Equal(t, 1, m.Len())

	m.CloseAll()
	assert.Zero(t, m.Len())
	assert.ErrorIs(t, b.Skip("melbourne"), ErrWrongStep)
}

func TestManagerRequiresRepository(t *testing.T) {
	assert.Panics(t, func() { NewManager(Config{}) })
}
