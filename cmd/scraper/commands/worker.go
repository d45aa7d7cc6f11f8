package commands

import (
	"github.com/spf13/cobra"

	redis_adapter "github.com/user/grant-aggregator/internal/adapter/redis"
	"github.com/user/grant-aggregator/internal/bootstrap"
	"github.com/user/grant-aggregator/internal/usecase"
)

func init() {
	rootCmd.AddCommand(workerCmd)
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes queued sync jobs until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sources, err := bootstrap.Sources(cfg)
		if err != nil {
			return err
		}

		dbpool, err := bootstrap.OpenPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer dbpool.Close()

		rdb, err := bootstrap.OpenRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer rdb.Close()

		worker := usecase.NewWorker(
			redis_adapter.NewQueueRepo(rdb),
			redis_adapter.NewMarkerRepo(rdb),
			bootstrap.Store(dbpool),
			sources,
			cfg.WorkerPoll(),
			bootstrap.Today(cfg),
		)
		return worker.Run(ctx)
	},
}
