package serve

import (
	"fmt"

	"ecpbench/internal/config"
	"ecpbench/internal/index"
	"ecpbench/internal/metrics"
	"ecpbench/internal/server"
	"ecpbench/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "serve",
		Short:                 "Serve indexes over HTTP",
		Long:                  "Start the HTTP API for building and querying in-memory eCP indexes.",
		Example:               Example(),
		Args:                  cobra.NoArgs,
		RunE:                  action,
		DisableFlagsInUseLine: true,
	}

	flags := cmd.Flags()
	flags.String("config-dir", ".", "Directory holding config.yaml")
	flags.String("addr", "", "Listen address (overrides server.addr)")

	return cmd
}

func Example() string {
	return "ecpbench serve --config-dir /etc/ecpbench --addr :9090"
}

func action(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	dir, _ := flags.GetString("config-dir")
	conf, err := config.NewConfig(dir)
	if err != nil {
		return fmt.Errorf("failed to load config from %q: %w", dir, err)
	}
	if addr, _ := flags.GetString("addr"); addr != "" {
		conf.Server.Addr = addr
	}
	if err := logger.Init(conf.Log); err != nil {
		return err
	}
	if debug, _ := flags.GetBool("debug"); debug {
		logger.SetLevel(logger.DebugLevel)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	manager := index.NewIndexManager(conf, metrics.New(reg))
	defer manager.Close()

	return server.New(conf, manager, reg).Run(ctx, conf.Server.Addr)
}
