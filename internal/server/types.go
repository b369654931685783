package server

import (
	"encoding/json"
	"time"

	"ecpbench/internal/ecp"
	"ecpbench/internal/index"
)

// CreateIndexRequest represents the request body for building an index.
// Params is decoded over the configured defaults, so omitted keys keep them.
type CreateIndexRequest struct {
	Name    string          `json:"name" binding:"required"`
	Type    index.IndexType `json:"type,omitempty"`
	Metric  *ecp.Metric     `json:"metric,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Vectors [][]float32     `json:"vectors" binding:"required"`
}

// IndexResponse describes one built index
type IndexResponse struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	index.Info
}

// ListIndexesResponse represents the response body for listing indexes
type ListIndexesResponse struct {
	Indexes []string `json:"indexes"`
}

// SearchRequest represents the request body for a single query.
// An omitted k or b takes the configured default.
type SearchRequest struct {
	Vector []float32 `json:"vector" binding:"required"`
	K      *int      `json:"k,omitempty"`
	B      int       `json:"b"`
}

// BatchSearchRequest runs the same k and b for every query
type BatchSearchRequest struct {
	Vectors [][]float32 `json:"vectors" binding:"required"`
	K       *int        `json:"k,omitempty"`
	B       int         `json:"b"`
}

// SearchResponse represents the response body for search results
type SearchResponse struct {
	IDs       []int     `json:"ids"`
	Distances []float64 `json:"distances"`
}

type BatchSearchResponse struct {
	Results []SearchResponse `json:"results"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
