package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/grant-aggregator/internal/adapter/postgres"
	"github.com/user/grant-aggregator/internal/bootstrap"
	"github.com/user/grant-aggregator/internal/usecase"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Closes every grant whose application deadline has passed.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dbpool, err := bootstrap.OpenPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer dbpool.Close()

		closed, err := usecase.Sweep(ctx, postgres.NewGrantRepo(dbpool), bootstrap.Today(cfg)())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "closed %d expired grants\n", closed)
		return nil
	},
}
