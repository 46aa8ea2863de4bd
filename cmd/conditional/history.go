package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/conditional/pkg/cli"
	"mercator-hq/conditional/pkg/journal"
)

var historyFlags struct {
	definition string
	failed     bool
	since      time.Duration
	limit      int
	offset     int
}

var historyCmd = &cobra.Command{
	Use:   "history [RUN_ID]",
	Short: "Show journaled runs",
	Long: `List journaled evaluation runs, newest first, or show one run with its
invocation tree.

Examples:
  # Recent runs
  conditional history

  # Failed runs of one definition in the last day
  conditional history --definition can-deploy --failed --since 24h

  # One run as a rendered report
  conditional history 3f6c... -o pretty`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyFlags.definition, "definition", "", "only runs of this definition")
	historyCmd.Flags().BoolVar(&historyFlags.failed, "failed", false, "only failed and timed out runs")
	historyCmd.Flags().DurationVar(&historyFlags.since, "since", 0, "only runs started within this duration")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "maximum number of runs")
	historyCmd.Flags().IntVar(&historyFlags.offset, "offset", 0, "number of runs to skip")
}

func runHistory(cmd *cobra.Command, args []string) error {
	out, err := formatter()
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{journal: true, quiet: true, noDefinitions: true})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.store == nil {
		return cli.NewConfigError("journal.enabled", "the journal is disabled")
	}

	ctx := cmd.Context()
	if len(args) == 1 {
		run, err := a.store.Get(ctx, args[0])
		if errors.Is(err, journal.ErrRunNotFound) {
			return &cli.ExitError{Code: 1, Err: err}
		}
		if err != nil {
			return cli.NewCommandError("history", err)
		}
		return out.FormatTo(cmd.OutOrStdout(), runView{run})
	}

	filter := journal.Filter{
		Definition: historyFlags.definition,
		OnlyFailed: historyFlags.failed,
		Limit:      historyFlags.limit,
		Offset:     historyFlags.offset,
	}
	if historyFlags.since > 0 {
		since := time.Now().Add(-historyFlags.since)
		filter.Since = &since
	}

	runs, err := a.store.Query(ctx, filter)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	return out.FormatTo(cmd.OutOrStdout(), runsView(runs))
}
