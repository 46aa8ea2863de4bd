package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/conditional/pkg/cli"
	"mercator-hq/conditional/pkg/service"
)

var evalFlags struct {
	state     []string
	stateFile string
	mode      string
	timeout   time.Duration
	repeat    int
}

var evalCmd = &cobra.Command{
	Use:   "eval NAME",
	Short: "Evaluate a definition",
	Long: `Evaluate a named definition and print its result.

State values are parsed as YAML scalars, so numbers and booleans keep their
types. The exit code reflects the result: 0 true, 1 false, 2 failed,
3 timeout, 4 cancelled.

Examples:
  # Evaluate with the document's seed state
  conditional eval can-deploy

  # Override state and force parallel dispatch
  conditional eval can-deploy --state env=prod --state replicas=3 --mode parallel

  # Load state from a file and show the invocation tree
  conditional eval can-deploy --state-file state.yaml -o pretty

  # Evaluate 100 times and summarize
  conditional eval can-deploy --repeat 100`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringArrayVarP(&evalFlags.state, "state", "s", nil, "state entry key=value (repeatable)")
	evalCmd.Flags().StringVar(&evalFlags.stateFile, "state-file", "", "YAML or JSON file with state entries")
	evalCmd.Flags().StringVarP(&evalFlags.mode, "mode", "m", "", "dispatch mode (declared, sequential, parallel)")
	evalCmd.Flags().DurationVar(&evalFlags.timeout, "timeout", 0, "override the engine timeout")
	evalCmd.Flags().IntVar(&evalFlags.repeat, "repeat", 1, "number of evaluations")
}

func runEval(cmd *cobra.Command, args []string) error {
	name := args[0]
	if evalFlags.repeat < 1 {
		return cli.NewConfigError("repeat", "must be at least 1")
	}

	state, err := loadState(evalFlags.stateFile, evalFlags.state)
	if err != nil {
		return err
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
	if evalFlags.timeout > 0 {
		a.cfg.Engine.Timeout = evalFlags.timeout
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	req := service.Request{State: state, Mode: evalFlags.mode}
	if evalFlags.repeat == 1 {
		result, err := a.service.Evaluate(ctx, name, req)
		if err != nil {
			return cli.NewCommandError("eval", err)
		}
		if err := out.FormatTo(cmd.OutOrStdout(), resultView{result}); err != nil {
			return err
		}
		return exitFor(exitCodeFor(result.Result))
	}

	summary, err := evaluateRepeatedly(ctx, cmd.ErrOrStderr(), a.service, name, req, evalFlags.repeat)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}
	if err := out.FormatTo(cmd.OutOrStdout(), summary); err != nil {
		return err
	}
	return exitFor(summary.exitCode())
}

func evaluateRepeatedly(ctx context.Context, progressOut io.Writer, svc *service.Service, name string, req service.Request, n int) (*summaryView, error) {
	summary := newSummary(name)
	progress := cli.NewProgressReporter(progressOut)
	progress.Start(n)
	for range n {
		if ctx.Err() != nil {
			progress.Error(ctx.Err())
			break
		}
		result, err := svc.Evaluate(ctx, name, req)
		if err != nil {
			progress.Error(err)
			return nil, err
		}
		summary.add(result)
		progress.Record(string(result.Result))
	}
	if summary.Runs == n {
		progress.Finish()
	}
	return summary, nil
}

func exitFor(code int) error {
	if code == 0 {
		return nil
	}
	return &cli.ExitError{Code: code}
}

// loadState merges a state file with key=value entries. Entries win.
func loadState(path string, entries []string) (map[string]any, error) {
	state := make(map[string]any)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read state file: %w", err)
		}
		if err := yaml.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
		}
	}

	for _, entry := range entries {
		key, raw, ok := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, cli.NewConfigError("state", fmt.Sprintf("%q is not key=value", entry))
		}
		state[key] = parseValue(raw)
	}
	return state, nil
}

// parseValue decodes raw as a YAML scalar, falling back to the raw string.
func parseValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	switch v.(type) {
	case map[string]any, []any:
		return raw
	}
	return v
}
