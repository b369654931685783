package index

import (
	"context"

	"ecpbench/internal/ecp"
)

// IndexConfig represents index configuration
type IndexConfig struct {
	Type   IndexType       `json:"type"`   // "ecp" or "flat"
	Metric ecp.Metric      `json:"metric"` // distance metric
	Params ecp.BuildParams `json:"params"` // eCP build parameters, ignored by flat
}

// SearchResult holds ranked hits, closest first.
type SearchResult struct {
	IDs       []int     `json:"ids"`
	Distances []float64 `json:"distances"`
}

// Info summarizes a built index.
type Info struct {
	Type      IndexType  `json:"type"`
	Metric    ecp.Metric `json:"metric"`
	Dimension int        `json:"dimension"`
	Points    int        `json:"points"`
	Stats     *ecp.Stats `json:"stats,omitempty"`
}

// VectorIndex is a read-only index built once from a dataset.
type VectorIndex interface {
	// Search returns the q.K nearest neighbors of vector. q.B bounds the number
	// of clusters scanned and q.Workers the scan fan-out; exact indexes ignore both.
	Search(ctx context.Context, vector []float64, q ecp.QueryParams) (*SearchResult, error)

	// Info describes the index.
	Info() Info

	// Close releases resources.
	Close() error
}

func fromNeighbors(hits []ecp.Neighbor) *SearchResult {
	res := &SearchResult{
		IDs:       make([]int, len(hits)),
		Distances: make([]float64, len(hits)),
	}
	for i, h := range hits {
		res.IDs[i] = h.ID
		res.Distances[i] = h.Distance
	}
	return res
}
