package bench

import (
	"fmt"
	"math/rand/v2"
	"os"

	"ecpbench/internal/bench"
	"ecpbench/internal/convert"
	"ecpbench/internal/ecp"
	"ecpbench/pkg/logger"

	"github.com/spf13/cobra"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "bench",
		Short:                 "Measure recall and throughput of eCP indexes",
		Long:                  "Build one eCP index per sc value and run, and measure recall@k against an exhaustive scan for every b value. Results are written as JSON lines.",
		Example:               Example(),
		Args:                  cobra.NoArgs,
		RunE:                  action,
		DisableFlagsInUseLine: true,
	}

	defaults := ecp.DefaultBuildParams()
	flags := cmd.Flags()
	flags.String("data", "", "Dataset file (.fvecs or .json); empty generates random integer vectors")
	flags.String("queries", "", "Query file; empty holds out --num-queries vectors from the dataset")
	flags.Int("limit", 0, "Read at most this many dataset vectors (0 reads all)")
	flags.Int("num-queries", 100, "Queries to hold out or generate")
	flags.Int("random-count", 10000, "Random dataset size")
	flags.Int("random-dim", 32, "Random dataset dimension")
	flags.Int("random-bound", 1000, "Random coordinates are integers in [0, bound)")
	flags.String("metric", ecp.Euclidean.String(), "Distance metric ([euclidean angular])")
	flags.Float64("p", defaults.Percentage, "Fraction of the dataset sampled as leader candidates")
	flags.IntSlice("sc", []int{defaults.SC}, "Target cluster sizes, one build per value")
	flags.Int("span", defaults.Span, "Fan-out of internal nodes")
	flags.IntSlice("b", []int{1, 2, 4, 8, 16, 32}, "Clusters scanned per query")
	flags.Int("k", 10, "Neighbors per query")
	flags.Int("runs", 1, "Repetitions of every build, each with its own seed")
	flags.Uint64("seed", 1, "Base seed; run i uses seed+i")
	flags.Bool("early-halt", false, "Abandon distance computations past the current bound")
	flags.Bool("batch-build", defaults.BatchBuild, "Build the tree in one pass instead of by insertion")
	flags.String("cpol", defaults.CPol.String(), "Descent policy ([nearest-1 nearest-j])")
	flags.String("npol", defaults.NPol.String(), "Leaf policy ([strict multi-assign])")
	flags.Int("j", defaults.J, "Beam width of the nearest-j descent")
	flags.Int("replicas", defaults.Replicas, "Leaves each point may join under multi-assign")
	flags.Float64("slack", defaults.Slack, "Distance slack a replica leaf may have over the nearest one")
	flags.String("cluster-policy", defaults.ClusterPolicy.String(), "Leaf recluster policy of incremental builds ([default average absolute])")
	flags.String("node-policy", defaults.NodePolicy.String(), "Internal node recluster policy of incremental builds ([default average absolute])")
	flags.Int("build-workers", defaults.Workers, "Goroutines used to build each index (0 uses GOMAXPROCS)")
	flags.Int("workers", 1, "Concurrent queries")
	flags.String("output", "", "Write results to this file instead of stdout")

	return cmd
}

func Example() string {
	return "ecpbench bench --data sift_base.fvecs --limit 100000 --sc 50,100,200 --b 1,4,16,64 --runs 3 --output sift.jsonl"
}

func action(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	base, err := buildParams(cmd)
	if err != nil {
		return err
	}
	metricName, _ := flags.GetString("metric")
	metric, err := ecp.ParseMetric(metricName)
	if err != nil {
		return err
	}
	k, _ := flags.GetInt("k")
	bs, _ := flags.GetIntSlice("b")
	scs, _ := flags.GetIntSlice("sc")
	runs, _ := flags.GetInt("runs")
	workers, _ := flags.GetInt("workers")

	data, queries, err := loadData(cmd)
	if err != nil {
		return err
	}
	logger.Info("Dataset ready", "points", len(data), "queries", len(queries), "dimension", len(data[0]))

	runner, err := bench.NewRunner(ctx, data, queries, metric, k)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if path, _ := flags.GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	for run := 0; run < max(runs, 1); run++ {
		for _, sc := range scs {
			params := base
			params.SC = sc
			params.Seed = base.Seed + uint64(run)
			cfg := bench.Config{Metric: metric, Params: params, K: k, Bs: bs, Workers: workers}

			results, err := runner.Run(ctx, run, cfg)
			if err != nil {
				return fmt.Errorf("run %d sc=%d: %w", run, sc, err)
			}
			if err := bench.WriteResults(out, results); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildParams(cmd *cobra.Command) (ecp.BuildParams, error) {
	flags := cmd.Flags()
	p := ecp.DefaultBuildParams()
	p.Percentage, _ = flags.GetFloat64("p")
	p.Span, _ = flags.GetInt("span")
	p.Seed, _ = flags.GetUint64("seed")
	p.EarlyHalt, _ = flags.GetBool("early-halt")
	p.BatchBuild, _ = flags.GetBool("batch-build")
	p.J, _ = flags.GetInt("j")
	p.Replicas, _ = flags.GetInt("replicas")
	p.Slack, _ = flags.GetFloat64("slack")
	p.Workers, _ = flags.GetInt("build-workers")

	cpol, _ := flags.GetString("cpol")
	if err := p.CPol.UnmarshalText([]byte(cpol)); err != nil {
		return p, err
	}
	npol, _ := flags.GetString("npol")
	if err := p.NPol.UnmarshalText([]byte(npol)); err != nil {
		return p, err
	}
	clusterPolicy, _ := flags.GetString("cluster-policy")
	if err := p.ClusterPolicy.UnmarshalText([]byte(clusterPolicy)); err != nil {
		return p, err
	}
	nodePolicy, _ := flags.GetString("node-policy")
	if err := p.NodePolicy.UnmarshalText([]byte(nodePolicy)); err != nil {
		return p, err
	}
	return p, p.Validate()
}

func loadData(cmd *cobra.Command) (data, queries [][]float64, err error) {
	flags := cmd.Flags()
	dataPath, _ := flags.GetString("data")
	queryPath, _ := flags.GetString("queries")
	limit, _ := flags.GetInt("limit")
	numQueries, _ := flags.GetInt("num-queries")

	var vectors [][]float32
	if dataPath == "" {
		count, _ := flags.GetInt("random-count")
		dim, _ := flags.GetInt("random-dim")
		bound, _ := flags.GetInt("random-bound")
		seed, _ := flags.GetUint64("seed")
		if count <= 0 || dim <= 0 {
			return nil, nil, fmt.Errorf("random-count and random-dim must be positive")
		}
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		vectors = bench.GenerateDescriptors(rng, count+numQueries, dim, bound)
	} else {
		vectors, err = bench.LoadVectors(dataPath, limit)
		if err != nil {
			return nil, nil, err
		}
	}

	var qs [][]float32
	if queryPath != "" {
		qs, err = bench.LoadVectors(queryPath, numQueries)
		if err != nil {
			return nil, nil, err
		}
	} else {
		vectors, qs = bench.Split(vectors, numQueries)
	}
	return convert.Float64Matrix(vectors), convert.Float64Matrix(qs), nil
}
