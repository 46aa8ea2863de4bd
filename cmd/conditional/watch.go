package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"mercator-hq/conditional/pkg/cli"
	"mercator-hq/conditional/pkg/service"
)

var watchFlags struct {
	mode string
}

var watchCmd = &cobra.Command{
	Use:   "watch NAME...",
	Short: "Re-evaluate definitions when the definitions file changes",
	Long: `Evaluate the named definitions, then reload and evaluate them again each
time the definitions file changes. Bursts of writes are debounced. With a
definitions repository configured, the branch is pulled on its poll
interval instead.

A reload that fails keeps the previous definitions and is logged.

Examples:
  conditional watch can-deploy any-flag
  conditional watch can-deploy -d ./conditions.yaml -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.mode, "mode", "m", "", "dispatch mode (declared, sequential, parallel)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	out, err := formatter()
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{journal: true, quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	var mu sync.Mutex
	evaluate := func(w io.Writer) error {
		mu.Lock()
		defer mu.Unlock()
		for _, name := range args {
			result, err := a.service.Evaluate(ctx, name, service.Request{Mode: watchFlags.mode})
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
				continue
			}
			if err := out.FormatTo(w, resultView{result}); err != nil {
				return err
			}
		}
		return nil
	}

	if err := evaluate(cmd.OutOrStdout()); err != nil {
		return err
	}

	watcher, release, err := a.newDefinitionWatcher()
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer release()

	source := a.cfg.Definitions.Path
	if a.repo != nil {
		source = a.cfg.Definitions.Git.Repository
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", source)
	return watcher.Watch(ctx, func() error {
		if err := a.service.Reload(); err != nil {
			return err
		}
		return evaluate(cmd.OutOrStdout())
	})
}
