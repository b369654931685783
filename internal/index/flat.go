package index

import (
	"context"
	"fmt"
	"sort"

	"ecpbench/internal/ecp"
	pkgerrors "ecpbench/pkg/errors"
)

// FlatIndex ranks every stored vector. It is the exact baseline recall is
// measured against.
type FlatIndex struct {
	Dim    int
	Data   []float64 // vectors laid out back to back
	Metric ecp.Metric
}

func newFlatIndex(config *IndexConfig, vectors [][]float64) (VectorIndex, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrConfiguration, pkgerrors.ErrEmptyDataset)
	}
	f := &FlatIndex{Dim: len(vectors[0]), Metric: config.Metric}
	if err := f.Build(vectors); err != nil {
		return nil, err
	}
	return f, nil
}

// Build replaces the contents of the index with vectors.
func (f *FlatIndex) Build(vectors [][]float64) error {
	f.Data = make([]float64, 0, len(vectors)*f.Dim)
	for i, v := range vectors {
		if len(v) != f.Dim {
			return fmt.Errorf("%w: %w: vector %d has %d coordinates, expected %d",
				pkgerrors.ErrConfiguration, pkgerrors.ErrDimensionMismatch, i, len(v), f.Dim)
		}
		f.Data = append(f.Data, v...)
	}
	return nil
}

func (f *FlatIndex) Len() int {
	if f.Dim == 0 {
		return 0
	}
	return len(f.Data) / f.Dim
}

// Search performs an exhaustive k-NN scan. q.B and q.Workers are ignored.
func (f *FlatIndex) Search(ctx context.Context, vector []float64, q ecp.QueryParams) (*SearchResult, error) {
	k := q.K
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", pkgerrors.ErrInvalidArgument, k)
	}
	if len(vector) != f.Dim {
		return nil, fmt.Errorf("%w: query has %d coordinates, index has %d",
			pkgerrors.ErrDimensionMismatch, len(vector), f.Dim)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]ecp.Neighbor, f.Len())
	for i := range results {
		start := i * f.Dim
		results[i] = ecp.Neighbor{ID: i, Distance: f.Metric.Distance(vector, f.Data[start:start+f.Dim])}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if k > len(results) {
		k = len(results)
	}
	return fromNeighbors(results[:k]), nil
}

func (f *FlatIndex) Info() Info {
	return Info{Type: FLATIndex, Metric: f.Metric, Dimension: f.Dim, Points: f.Len()}
}

// Close release resource
func (f *FlatIndex) Close() error {
	return nil
}
