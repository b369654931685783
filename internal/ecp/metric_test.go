package ecp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEuclideanIsSquared(t *testing.T) {
	assert.Equal(t, 25.0, Euclidean.Distance([]float64{0, 0}, []float64{3, 4}))
	assert.Equal(t, 0.0, Euclidean.Distance([]float64{1, 2, 3}, []float64{1, 2, 3}))
	assert.Equal(t, 5.0, Euclidean.Report(25))
}

func TestAngular(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"scaled", []float64{1, 1}, []float64{5, 5}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, math.Pi},
		{"perpendicular", []float64{1, 0}, []float64{0, 1}, math.Pi / 2},
		{"zero vector", []float64{0, 0}, []float64{0, 1}, math.Pi / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Angular.Distance(tt.a, tt.b), 1e-6)
		})
	}
	assert.Equal(t, 1.5, Angular.Report(1.5))
}

func TestDistancePanicsOnDimensionMismatch(t *testing.T) {
	assert.PanicsWithError(t, "vector dimension mismatch: 2 != 3", func() {
		Euclidean.Distance([]float64{1, 2}, []float64{1, 2, 3})
	})
	assert.Panics(t, func() {
		Angular.Distance([]float64{1}, []float64{1, 2})
	})
}

func TestSquaredL2EarlyHalt(t *testing.T) {
	a := []float64{0, 0, 0, 0}
	b := []float64{2, 2, 2, 2}

	assert.Equal(t, 16.0, squaredL2(a, b, math.Inf(1)))

	partial := squaredL2(a, b, 5)
	assert.Greater(t, partial, 5.0)
	assert.Less(t, partial, 16.0)

	// A bound equal to the true distance must not truncate.
	assert.Equal(t, 16.0, squaredL2(a, b, 16))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("Angular")
	require.NoError(t, err)
	assert.Equal(t, Angular, m)

	m, err = ParseMetric("l2")
	require.NoError(t, err)
	assert.Equal(t, Euclidean, m)

	_, err = ParseMetric("hamming")
	assert.ErrorContains(t, err, "unknown metric")
}

func TestMetricText(t *testing.T) {
	text, err := Angular.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "angular", string(text))

	var m Metric
	require.NoError(t, m.UnmarshalText([]byte("euclidean")))
	assert.Equal(t, Euclidean, m)

	_, err = Metric(9).MarshalText()
	assert.Error(t, err)
}
