package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"mercator-hq/conditional/pkg/cli"
	"mercator-hq/conditional/pkg/service"
)

var scheduleFlags struct {
	cron      string
	mode      string
	immediate bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule NAME...",
	Short: "Evaluate definitions on a cron schedule",
	Long: `Evaluate the named definitions on a cron schedule until interrupted.

The schedule is a standard five-field cron expression or a descriptor such
as @hourly or @every 30s. Every run is journaled.

Examples:
  conditional schedule can-deploy --cron "*/5 * * * *"
  conditional schedule can-deploy any-flag --cron "@every 30s" --immediate`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleFlags.cron, "cron", "@every 1m", "cron schedule")
	scheduleCmd.Flags().StringVarP(&scheduleFlags.mode, "mode", "m", "", "dispatch mode (declared, sequential, parallel)")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.immediate, "immediate", false, "evaluate once before the first scheduled run")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	schedule, err := cron.ParseStandard(scheduleFlags.cron)
	if err != nil {
		return cli.NewConfigError("cron", fmt.Sprintf("invalid schedule %q: %v", scheduleFlags.cron, err))
	}
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
	evaluate := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, name := range args {
			result, err := a.service.Evaluate(ctx, name, service.Request{Mode: scheduleFlags.mode})
			if err != nil {
				a.logger.Error("scheduled evaluation failed", "definition", name, "error", err)
				continue
			}
			if err := out.FormatTo(cmd.OutOrStdout(), resultView{result}); err != nil {
				a.logger.Error("failed to write result", "error", err)
			}
		}
	}

	if scheduleFlags.immediate {
		evaluate()
	}

	c := cron.New()
	c.Schedule(schedule, cron.FuncJob(evaluate))
	c.Start()

	fmt.Fprintf(cmd.ErrOrStderr(), "Scheduled %d definitions (%s), next run %s\n",
		len(args), scheduleFlags.cron, schedule.Next(time.Now()).Format(time.TimeOnly))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
