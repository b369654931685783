package average

import (
	"fmt"
	"io"
	"os"

	"ecpbench/internal/bench"
	"ecpbench/pkg/logger"

	"github.com/spf13/cobra"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "average INPUT...",
		Short:                 "Average repeated benchmark runs",
		Long:                  "Group benchmark results by configuration and b, and average recall, throughput and latency across runs. \"-\" reads stdin.",
		Example:               Example(),
		Args:                  cobra.MinimumNArgs(1),
		RunE:                  action,
		DisableFlagsInUseLine: true,
	}

	flags := cmd.Flags()
	flags.String("output", "", "Write the summary to this file instead of stdout")

	return cmd
}

func Example() string {
	return "ecpbench average run1.jsonl run2.jsonl run3.jsonl"
}

func action(cmd *cobra.Command, args []string) error {
	var results []bench.Result
	for _, path := range args {
		rs, err := readFile(cmd, path)
		if err != nil {
			return fmt.Errorf("failed to read results %q: %w", path, err)
		}
		results = append(results, rs...)
	}
	summaries := bench.Average(results)
	logger.Info("Averaged results", "results", len(results), "settings", len(summaries))

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return bench.WriteSummaries(out, summaries)
}

func readFile(cmd *cobra.Command, path string) ([]bench.Result, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return bench.ReadResults(r)
}
