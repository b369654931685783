package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// eCP bench Go SDK
//
// A thin wrapper around the index server HTTP API. Every method returns *Error
// when the server answers with a non-successful status code.
//
// Example usage:
//  c := NewClient("http://localhost:8080")
//  ok, err := c.HealthCheck(ctx)
//  ...

// Client is an HTTP client for the index server.
type Client struct {
	BaseURL string
	Client  *http.Client
}

// Error represents an error returned by the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ecpbench: %d %s", e.StatusCode, e.Message)
}

// BuildParams mirrors the server's build parameters. Zero and nil fields are
// left out of the request and keep the server defaults.
type BuildParams struct {
	Percentage    float64 `json:"percentage,omitempty"`
	SC            int     `json:"sc,omitempty"`
	Span          int     `json:"span,omitempty"`
	CPol          string  `json:"cpol,omitempty"`
	J             int     `json:"j,omitempty"`
	NPol          string  `json:"npol,omitempty"`
	Replicas      int     `json:"replicas,omitempty"`
	Slack         float64 `json:"slack,omitempty"`
	EarlyHalt     *bool   `json:"early_halt,omitempty"`
	BatchBuild    *bool   `json:"batch_build,omitempty"`
	Seed          uint64  `json:"seed,omitempty"`
	Workers       int     `json:"workers,omitempty"`
	ClusterPolicy string  `json:"cluster_policy,omitempty"`
	NodePolicy    string  `json:"node_policy,omitempty"`
}

// Bool returns a pointer to v, for the optional BuildParams switches.
func Bool(v bool) *bool {
	return &v
}

// CreateIndexOptions describes an index to build.
type CreateIndexOptions struct {
	Name    string       `json:"name"`
	Type    string       `json:"type,omitempty"`
	Metric  string       `json:"metric,omitempty"`
	Params  *BuildParams `json:"params,omitempty"`
	Vectors [][]float32  `json:"vectors"`
}

// IndexInfo is the server's description of a built index.
type IndexInfo struct {
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	Type      string         `json:"type"`
	Metric    string         `json:"metric"`
	Dimension int            `json:"dimension"`
	Points    int            `json:"points"`
	Stats     map[string]any `json:"stats,omitempty"`
}

// SearchResult holds ranked ids, closest first.
type SearchResult struct {
	IDs       []int     `json:"ids"`
	Distances []float64 `json:"distances"`
}

// NewClient creates a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// request sends an HTTP request and decodes the response body into out when
// out is not nil.
func (c *Client) request(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		msg := string(respBody)
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// HealthCheck checks if the server is healthy.
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	var result map[string]string
	if err := c.request(ctx, http.MethodGet, "/", nil, &result); err != nil {
		return false, err
	}
	return result["status"] == "ok", nil
}

// CreateIndex builds an index on the server and returns its description.
func (c *Client) CreateIndex(ctx context.Context, opts CreateIndexOptions) (*IndexInfo, error) {
	if opts.Name == "" || len(opts.Vectors) == 0 {
		return nil, fmt.Errorf("name and vectors must not be empty")
	}
	var info IndexInfo
	if err := c.request(ctx, http.MethodPost, "/v1/indexes", opts, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetIndex retrieves index information.
func (c *Client) GetIndex(ctx context.Context, name string) (*IndexInfo, error) {
	var info IndexInfo
	if err := c.request(ctx, http.MethodGet, "/v1/indexes/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListIndexes lists the names of all indexes.
func (c *Client) ListIndexes(ctx context.Context) ([]string, error) {
	var result struct {
		Indexes []string `json:"indexes"`
	}
	if err := c.request(ctx, http.MethodGet, "/v1/indexes", nil, &result); err != nil {
		return nil, err
	}
	return result.Indexes, nil
}

// DeleteIndex deletes an index.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	return c.request(ctx, http.MethodDelete, "/v1/indexes/"+url.PathEscape(name), nil, nil)
}

// Search returns the k nearest neighbors of vector, scanning b clusters.
// Zero k or b use the server defaults.
func (c *Client) Search(ctx context.Context, name string, vector []float32, k, b int) (*SearchResult, error) {
	payload := queryPayload(k, b)
	payload["vector"] = vector
	var result SearchResult
	if err := c.request(ctx, http.MethodPost, "/v1/indexes/"+url.PathEscape(name)+"/search", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BatchSearch runs several queries with the same k and b in one request.
func (c *Client) BatchSearch(ctx context.Context, name string, vectors [][]float32, k, b int) ([]SearchResult, error) {
	payload := queryPayload(k, b)
	payload["vectors"] = vectors
	var result struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.request(ctx, http.MethodPost, "/v1/indexes/"+url.PathEscape(name)+"/batchsearch", payload, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func queryPayload(k, b int) map[string]any {
	payload := map[string]any{}
	if k != 0 {
		payload["k"] = k
	}
	if b != 0 {
		payload["b"] = b
	}
	return payload
}
