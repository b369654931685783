package index

import (
	"context"
	"sync"
	"testing"

	"ecpbench/internal/config"
	"ecpbench/internal/ecp"
	"ecpbench/internal/metrics"
	"ecpbench/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestManager(t *testing.T) (*Manager, *metrics.Metrics) {
	conf := config.Default()
	conf.Server.CacheSize = 8
	m := metrics.New(prometheus.NewRegistry())
	manager := NewIndexManager(conf, m)
	t.Cleanup(func() { manager.Close() })
	return manager, m
}

func testConfig() *IndexConfig {
	return &IndexConfig{
		Type:   ECPIndex,
		Metric: ecp.Euclidean,
		Params: ecp.BuildParams{Percentage: 0.3, SC: 5, Span: 3, BatchBuild: true},
	}
}

func TestManagerCreateIndex(t *testing.T) {
	manager, m := setupTestManager(t)

	index, err := manager.CreateIndex(context.Background(), "test_index", testConfig(), generateFlatVectors(60, 4))
	require.NoError(t, err)
	assert.NotNil(t, index)
	assert.Equal(t, 60.0, testutil.ToFloat64(m.Points.WithLabelValues("test_index")))

	// Test duplicate creation
	_, err = manager.CreateIndex(context.Background(), "test_index", testConfig(), generateFlatVectors(10, 4))
	assert.ErrorIs(t, err, errors.ErrIndexExists)

	_, err = manager.CreateIndex(context.Background(), "", testConfig(), generateFlatVectors(10, 4))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestManagerFailedBuildReleasesName(t *testing.T) {
	manager, _ := setupTestManager(t)

	bad := testConfig()
	bad.Params.Percentage = 0
	_, err := manager.CreateIndex(context.Background(), "retry", bad, generateFlatVectors(10, 2))
	assert.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Empty(t, manager.ListIndexes())

	_, err = manager.CreateIndex(context.Background(), "retry", testConfig(), generateFlatVectors(10, 2))
	assert.NoError(t, err)
}

func TestManagerGetListDelete(t *testing.T) {
	manager, _ := setupTestManager(t)

	for _, name := range []string{"b", "a", "c"} {
		_, err := manager.CreateIndex(context.Background(), name, testConfig(), generateFlatVectors(20, 2))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, manager.ListIndexes())

	index, err := manager.GetIndex("b")
	require.NoError(t, err)
	assert.Equal(t, 20, index.Info().Points)

	info, created, err := manager.Describe("b")
	require.NoError(t, err)
	assert.Equal(t, ECPIndex, info.Type)
	assert.False(t, created.IsZero())

	require.NoError(t, manager.DeleteIndex("b"))
	_, err = manager.GetIndex("b")
	assert.ErrorIs(t, err, errors.ErrIndexNotFound)
	assert.ErrorIs(t, manager.DeleteIndex("b"), errors.ErrIndexNotFound)
	assert.Equal(t, []string{"a", "c"}, manager.ListIndexes())
}

func TestManagerSearchUsesCache(t *testing.T) {
	manager, m := setupTestManager(t)
	vectors := generateFlatVectors(40, 3)
	_, err := manager.CreateIndex(context.Background(), "cached", testConfig(), vectors)
	require.NoError(t, err)

	first, err := manager.Search(context.Background(), "cached", vectors[10], 3, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, first.IDs[0])

	second, err := manager.Search(context.Background(), "cached", vectors[10], 3, 100)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))

	// Recreating the index under the same name must not serve stale hits.
	require.NoError(t, manager.DeleteIndex("cached"))
	_, err = manager.CreateIndex(context.Background(), "cached", testConfig(), vectors)
	require.NoError(t, err)
	third, err := manager.Search(context.Background(), "cached", vectors[10], 3, 100)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, first, third)
}

func TestManagerSearchDefaultsAndErrors(t *testing.T) {
	manager, _ := setupTestManager(t)
	_, err := manager.CreateIndex(context.Background(), "d", testConfig(), generateFlatVectors(30, 2))
	require.NoError(t, err)

	res, err := manager.Search(context.Background(), "d", []float64{5, 0}, 0, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.IDs), config.Default().Query.K)

	_, err = manager.Search(context.Background(), "d", []float64{5, 0}, -3, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	// A negative b is clamped to one cluster, not replaced by the default.
	res, err = manager.Search(context.Background(), "d", []float64{5, 0}, 2, -4)
	require.NoError(t, err)
	assert.NotEmpty(t, res.IDs)
	assert.LessOrEqual(t, len(res.IDs), 2)

	_, err = manager.Search(context.Background(), "d", []float64{5}, 3, 1)
	assert.ErrorIs(t, err, errors.ErrDimensionMismatch)

	_, err = manager.Search(context.Background(), "missing", []float64{5, 0}, 3, 1)
	assert.ErrorIs(t, err, errors.ErrIndexNotFound)
}

func TestManagerConcurrentCreate(t *testing.T) {
	manager, _ := setupTestManager(t)
	vectors := generateFlatVectors(50, 2)

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = manager.CreateIndex(context.Background(), "race", testConfig(), vectors)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, errors.ErrIndexExists)
		}
	}
	assert.Equal(t, 1, succeeded)
}
