package commands

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/grant-aggregator/internal/adapter/postgres"
	"github.com/user/grant-aggregator/internal/bootstrap"
	"github.com/user/grant-aggregator/internal/entity"
)

var runsLimit *int

func init() {
	runsLimit = runsCmd.Flags().Int("limit", 20, "The number of recent runs to show.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs [--limit <n>]",
	Short: "Lists the most recent scraper runs.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dbpool, err := bootstrap.OpenPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer dbpool.Close()

		logs, err := postgres.NewRunLogRepo(dbpool).ListRecent(ctx, *runsLimit)
		if err != nil {
			return err
		}
		printRunLogs(logs)
		return nil
	},
}

func printRunLogs(logs []*entity.RunLog) {
	t := newTable()
	t.AppendHeader(table.Row{"Run ID", "Source", "Status", "Started", "Finished", "Found", "Created", "Updated", "Error"})
	for _, l := range logs {
		finished := "-"
		if l.FinishedAt != nil {
			finished = l.FinishedAt.Format(time.DateTime)
		}
		errText := ""
		if l.ErrorMessage != nil {
			errText = *l.ErrorMessage
		}
		t.AppendRow(table.Row{
			l.ID,
			l.SourceRef,
			l.Status,
			l.StartedAt.Format(time.DateTime),
			finished,
			l.Stats.Found,
			l.Stats.Created,
			l.Stats.Updated,
			errText,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "Total", len(logs)})
	t.Render()
}
