package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ecpbench/cmd/ecpbench/commands/average"
	"ecpbench/cmd/ecpbench/commands/bench"
	"ecpbench/cmd/ecpbench/commands/serve"
	"ecpbench/pkg/logger"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error("Error", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ecpbench",
		Short:         "Build, serve and benchmark eCP approximate nearest neighbor indexes",
		Example:       bench.Example(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.Bool("debug", false, "debug logging")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			logger.SetLevel(logger.DebugLevel)
		}
		return nil
	}

	cmd.AddCommand(serve.New())
	cmd.AddCommand(bench.New())
	cmd.AddCommand(average.New())

	return cmd
}
