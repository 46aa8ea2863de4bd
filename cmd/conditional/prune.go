package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/conditional/pkg/cli"
	"mercator-hq/conditional/pkg/config"
	"mercator-hq/conditional/pkg/journal"
)

var pruneFlags struct {
	days    int
	maxRuns int64
	dryRun  bool
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old journaled runs",
	Long: `Delete runs older than the retention period, then the oldest runs beyond
the maximum count. Flags override the configured retention.

Examples:
  conditional prune
  conditional prune --days 7 --max-runs 10000
  conditional prune --days 7 --dry-run`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().IntVar(&pruneFlags.days, "days", -1, "retention in days (0 keeps runs regardless of age)")
	pruneCmd.Flags().Int64Var(&pruneFlags.maxRuns, "max-runs", -1, "maximum number of runs to keep (0 is unlimited)")
	pruneCmd.Flags().BoolVar(&pruneFlags.dryRun, "dry-run", false, "count runs older than the retention period without deleting")
}

func runPrune(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{journal: true, quiet: true, noDefinitions: true})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.store == nil {
		return cli.NewConfigError("journal.enabled", "the journal is disabled")
	}

	retention := a.cfg.Journal.Retention
	if pruneFlags.days >= 0 {
		retention.Days = pruneFlags.days
	}
	if pruneFlags.maxRuns >= 0 {
		retention.MaxRuns = pruneFlags.maxRuns
	}

	ctx := cmd.Context()
	if pruneFlags.dryRun {
		return pruneDryRun(cmd, a.store, retention)
	}

	deleted, err := journal.NewPruner(a.store, &retention).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d runs\n", deleted)
	return nil
}

func pruneDryRun(cmd *cobra.Command, store journal.Store, retention config.RetentionConfig) error {
	if retention.Days <= 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Age retention disabled; nothing to count")
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retention.Days)
	n, err := store.Count(cmd.Context(), journal.Filter{Until: &cutoff})
	if err != nil {
		return cli.NewCommandError("prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d runs started before %s would be deleted\n", n, cutoff.Format(time.RFC3339))
	return nil
}
