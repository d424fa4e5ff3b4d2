package cli

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldbook/internal/config"
	"github.com/matzehuels/fieldbook/internal/server"
	"github.com/matzehuels/fieldbook/pkg/errors"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout API over HTTP",
		Long: `Serve the layout API over HTTP.

Settings are read from FIELDBOOK_* environment variables: FIELDBOOK_ADDR,
FIELDBOOK_REDIS_ADDR (render cache), FIELDBOOK_MONGO_URI (layout store),
FIELDBOOK_LOG_LEVEL and the timeouts. Without Redis nothing is cached and
without MongoDB layouts live in memory.

Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			level, err := log.ParseLevel(cfg.LogLevel)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "log level")
			}
			c.SetLogLevel(level)

			ctx := cmd.Context()
			runner, st, err := server.Open(ctx, cfg, c.Logger)
			if err != nil {
				return err
			}
			defer runner.Close()
			defer st.Close(context.Background())

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			server.NewMetrics(reg).Install()

			return server.New(cfg, runner, st, c.Logger, reg).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address (overrides FIELDBOOK_ADDR)")

	return cmd
}
