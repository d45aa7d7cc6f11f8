package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/grant-aggregator/internal/bootstrap"
	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/source"
	"github.com/user/grant-aggregator/internal/usecase"
)

var runSource *string

func init() {
	runSource = runCmd.Flags().String("source", usecase.SourceAll, "The source to scrape: jgrants, erad or all.")
	rootCmd.AddCommand(runCmd)
}

type runResult struct {
	name     entity.Source
	log      *entity.RunLog
	err      error
	duration time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run [--source jgrants|erad|all]",
	Short: "Runs the scraper pipeline once for the selected sources.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		all, err := bootstrap.Sources(cfg)
		if err != nil {
			return err
		}
		selected, err := selectSources(all, *runSource)
		if err != nil {
			return err
		}

		dbpool, err := bootstrap.OpenPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer dbpool.Close()

		store := bootstrap.Store(dbpool)
		today := bootstrap.Today(cfg)()

		// Pipelines are independent; one failing never cancels the others.
		results := make([]runResult, len(selected))
		var g errgroup.Group
		for i, src := range selected {
			g.Go(func() error {
				start := time.Now()
				log, err := usecase.RunScraper(ctx, store, src, usecase.RunOptions{Today: today})
				results[i] = runResult{name: src.Name(), log: log, err: err, duration: time.Since(start)}
				return nil
			})
		}
		_ = g.Wait()

		printRunResults(results)

		var errs []error
		for _, r := range results {
			if r.err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.name, r.err))
			}
		}
		return errors.Join(errs...)
	},
}

// selectSources narrows the configured pipelines to name, or keeps them all.
func selectSources(all []source.Source, name string) ([]source.Source, error) {
	if name == usecase.SourceAll {
		return all, nil
	}
	want, ok := entity.ParseSource(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", usecase.ErrUnknownSource, name)
	}
	for _, s := range all {
		if s.Name() == want {
			return []source.Source{s}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not configured", usecase.ErrUnknownSource, name)
}

func printRunResults(results []runResult) {
	t := newTable()
	t.AppendHeader(table.Row{"Source", "Run ID", "Status", "Found", "Created", "Updated", "Duration", "Error"})
	for _, r := range results {
		if r.log == nil {
			t.AppendRow(table.Row{r.name, "-", "-", "-", "-", "-", r.duration.Round(time.Millisecond), r.err})
			continue
		}
		errText := ""
		if r.log.ErrorMessage != nil {
			errText = *r.log.ErrorMessage
		}
		t.AppendRow(table.Row{
			r.name,
			r.log.ID,
			r.log.Status,
			r.log.Stats.Found,
			r.log.Stats.Created,
			r.log.Stats.Updated,
			r.duration.Round(time.Millisecond),
			errText,
		})
	}
	t.Render()
}
