// Package bench measures build time, query latency and recall of eCP indexes
// against an exhaustive baseline, swept over the number of clusters scanned.
package bench

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"ecpbench/internal/ecp"
	"ecpbench/internal/index"
	pkgerrors "ecpbench/pkg/errors"
	"ecpbench/pkg/logger"

	"github.com/twmb/murmur3"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// distanceSlack is the relative tolerance used when a returned neighbor is
// compared against the k-th true distance.
const distanceSlack = 1e-3

// Config is one benchmark setting. Every B in Bs is measured against the same build.
type Config struct {
	Metric  ecp.Metric      `json:"metric" yaml:"metric"`
	Params  ecp.BuildParams `json:"params" yaml:"params"`
	K       int             `json:"k" yaml:"k"`
	Bs      []int           `json:"bs" yaml:"bs"`
	Workers int             `json:"workers,omitempty" yaml:"workers"`
}

// Label names a setting the way result tables print it.
func (c Config) Label(b int) string {
	return fmt.Sprintf("eCP(metric=%s, sc=%d, span=%d, p=%g, b=%d, early_halt=%t, batch_build=%t)",
		c.Metric, c.Params.SC, c.Params.Span, c.Params.Percentage, b, c.Params.EarlyHalt, c.Params.BatchBuild)
}

// Key hashes the label so repeated runs of the same setting group together.
func (c Config) Key(b int) string {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], murmur3.Sum64([]byte(c.Label(b))))
	return hex.EncodeToString(buf[:])
}

func (c Config) validate() error {
	if c.K <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", pkgerrors.ErrInvalidArgument, c.K)
	}
	if len(c.Bs) == 0 {
		return fmt.Errorf("%w: at least one b value is required", pkgerrors.ErrInvalidArgument)
	}
	for _, b := range c.Bs {
		if b < 1 {
			return fmt.Errorf("%w: b must be positive, got %d", pkgerrors.ErrInvalidArgument, b)
		}
	}
	return c.Params.Validate()
}

// Result is the measurement of one (setting, b) pair in one run.
type Result struct {
	Run          int     `json:"run"`
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	B            int     `json:"b"`
	K            int     `json:"k"`
	Queries      int     `json:"queries"`
	Recall       float64 `json:"recall"`
	QPS          float64 `json:"qps"`
	MeanLatency  float64 `json:"mean_latency_ms"`
	P99Latency   float64 `json:"p99_latency_ms"`
	BuildSeconds float64 `json:"build_seconds"`
	Leaves       int     `json:"leaves"`
}

// Runner holds one dataset, its queries and the exact answers for them.
type Runner struct {
	data    [][]float64
	queries [][]float64
	metric  ecp.Metric
	k       int
	truth   [][]float64 // sorted true distances per query
}

// NewRunner computes the exact k nearest distances of every query with a flat index.
func NewRunner(ctx context.Context, data, queries [][]float64, metric ecp.Metric, k int) (*Runner, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: no queries", pkgerrors.ErrInvalidArgument)
	}
	if err := finite(data); err != nil {
		return nil, err
	}
	flat, err := index.NewIndex(ctx, &index.IndexConfig{Type: index.FLATIndex, Metric: metric}, data)
	if err != nil {
		return nil, err
	}
	defer flat.Close()

	r := &Runner{data: data, queries: queries, metric: metric, k: k, truth: make([][]float64, len(queries))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, q := range queries {
		g.Go(func() error {
			res, err := flat.Search(gctx, q, ecp.QueryParams{K: k})
			if err != nil {
				return fmt.Errorf("ground truth for query %d: %w", i, err)
			}
			r.truth[i] = res.Distances
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}

// Run builds one index for cfg and measures every b in cfg.Bs. run tags the
// results so repeated runs can be averaged.
func (r *Runner) Run(ctx context.Context, run int, cfg Config) ([]Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Metric != r.metric || cfg.K != r.k {
		return nil, fmt.Errorf("%w: runner was prepared for %s k=%d", pkgerrors.ErrInvalidArgument, r.metric, r.k)
	}

	start := time.Now()
	ix, err := ecp.Build(ctx, r.data, cfg.Metric, cfg.Params)
	if err != nil {
		return nil, err
	}
	build := time.Since(start)

	results := make([]Result, 0, len(cfg.Bs))
	for _, b := range cfg.Bs {
		res, err := r.measure(ctx, ix, cfg, b)
		if err != nil {
			return nil, err
		}
		res.Run = run
		res.BuildSeconds = build.Seconds()
		results = append(results, res)
		logger.Info("Benchmark point",
			"run", run, "label", res.Label, "recall", res.Recall, "qps", res.QPS)
	}
	return results, nil
}

func (r *Runner) measure(ctx context.Context, ix *ecp.Index, cfg Config, b int) (Result, error) {
	latencies := make([]float64, len(r.queries))
	recalls := make([]float64, len(r.queries))
	var failed atomic.Int64

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	start := time.Now()
	for i, q := range r.queries {
		g.Go(func() error {
			t := time.Now()
			// Queries run single-threaded so latency reflects one search.
			hits, err := ix.Search(gctx, q, ecp.QueryParams{K: cfg.K, B: b, Workers: 1})
			if err != nil {
				failed.Add(1)
				return err
			}
			latencies[i] = float64(time.Since(t)) / float64(time.Millisecond)
			recalls[i] = recallAt(hits, r.truth[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("b=%d: %d queries failed: %w", b, failed.Load(), err)
	}
	wall := time.Since(start)

	slices.Sort(latencies)
	return Result{
		Key:         cfg.Key(b),
		Label:       cfg.Label(b),
		B:           b,
		K:           cfg.K,
		Queries:     len(r.queries),
		Recall:      stat.Mean(recalls, nil),
		QPS:         float64(len(r.queries)) / wall.Seconds(),
		MeanLatency: stat.Mean(latencies, nil),
		P99Latency:  stat.Quantile(0.99, stat.Empirical, latencies, nil),
		Leaves:      ix.Leaves(),
	}, nil
}

// recallAt counts the hits no farther than the k-th true distance, so ties at
// the boundary are not penalized.
func recallAt(hits []ecp.Neighbor, truth []float64) float64 {
	if len(truth) == 0 {
		return 1
	}
	threshold := truth[len(truth)-1]
	threshold += distanceSlack * max(threshold, 1)
	found := 0
	for _, h := range hits {
		if h.Distance <= threshold {
			found++
		}
	}
	return float64(min(found, len(truth))) / float64(len(truth))
}
