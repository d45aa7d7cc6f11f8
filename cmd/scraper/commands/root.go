package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/grant-aggregator/pkg/config"
	"github.com/user/grant-aggregator/pkg/logger"
	"github.com/user/grant-aggregator/pkg/telemetry"
)

var (
	cfg             *config.Config
	shutdownTracing telemetry.Shutdown = func(context.Context) error { return nil }
)

var rootCmd = &cobra.Command{
	Use:          "scraper",
	Short:        "scraper runs the grant source pipelines and the sync queue worker.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		logger.Init(os.Stderr, logger.Options{
			Level:   logger.ParseLevel(cfg.LogLevel),
			Format:  cfg.LogFormat,
			Service: cfg.ServiceName + "-scraper",
		})

		shutdown, err := telemetry.Setup(cmd.Context(), cfg.ServiceName+"-scraper", cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("unable to set up tracing: %w", err)
		}
		shutdownTracing = shutdown
		return nil
	},
}

// ExecuteContext runs the command tree and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if shutdownErr := shutdownTracing(context.Background()); shutdownErr != nil {
		slog.Warn("Trace flush failed", "error", shutdownErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
