package index

import (
	"context"

	"ecpbench/internal/ecp"
)

type ecpIndex struct {
	ix *ecp.Index
}

func newECPIndex(ctx context.Context, config *IndexConfig, vectors [][]float64) (VectorIndex, error) {
	ix, err := ecp.Build(ctx, vectors, config.Metric, config.Params)
	if err != nil {
		return nil, err
	}
	return &ecpIndex{ix: ix}, nil
}

func (e *ecpIndex) Search(ctx context.Context, vector []float64, q ecp.QueryParams) (*SearchResult, error) {
	hits, err := e.ix.Search(ctx, vector, q)
	if err != nil {
		return nil, err
	}
	return fromNeighbors(hits), nil
}

func (e *ecpIndex) Info() Info {
	stats := e.ix.Stats()
	return Info{
		Type:      ECPIndex,
		Metric:    e.ix.Metric(),
		Dimension: e.ix.Dimension(),
		Points:    e.ix.Len(),
		Stats:     &stats,
	}
}

func (e *ecpIndex) Close() error {
	return nil
}
