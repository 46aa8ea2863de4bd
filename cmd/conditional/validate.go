package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/conditional/pkg/cli"
	"mercator-hq/conditional/pkg/config"
	"mercator-hq/conditional/pkg/definition"
	"mercator-hq/conditional/pkg/runner"
)

var validateCmd = &cobra.Command{
	Use:   "validate [FILE]",
	Short: "Validate a definitions file",
	Long: `Validate a definitions file and list the definitions it declares.

Every problem is reported with its location in the document. Runner
references are checked against the runners of the configuration.

Examples:
  # Validate the configured definitions
  conditional validate

  # Validate a specific file
  conditional validate ./conditions.yaml -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := formatter()
	if err != nil {
		return err
	}

	path := cfg.Definitions.Path
	if len(args) == 1 {
		path = args[0]
	} else {
		logger, err := newLogger(cfg, true, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if err := resolveSecrets(cfg, logger); err != nil {
			return err
		}
		if _, err := checkoutDefinitions(cfg, logger); err != nil {
			return err
		}
		path = cfg.Definitions.Path
	}

	doc, err := definition.Load(path)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	runners, err := configuredRunners(cfg.Engine.Runners)
	if err != nil {
		return err
	}
	defer runners.Close()

	registry := definition.NewRegistry()
	if err := definition.Validate(doc, registry, runners); err != nil {
		var validationErr *definition.ValidationError
		if !errors.As(err, &validationErr) {
			return cli.NewCommandError("validate", err)
		}
		if err := out.FormatTo(cmd.OutOrStdout(), problemsView(validationErr.Problems)); err != nil {
			return err
		}
		return &cli.ExitError{Code: 1}
	}

	set, err := definition.Build(doc, registry, runners)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	view := make(definitionsView, 0, len(set.Names()))
	for _, name := range set.Names() {
		c, err := set.Get(name)
		if err != nil {
			return err
		}
		view = append(view, definitionInfo{Name: name, Condition: c.String(), Description: set.Description(name)})
	}
	if err := out.FormatTo(cmd.OutOrStdout(), view); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d definitions valid\n", path, len(view))
	return nil
}

// configuredRunners builds the named pools of the configuration.
func configuredRunners(cfgs map[string]config.RunnerConfig) (*runner.Registry, error) {
	runners := runner.NewRegistry()
	for name, rc := range cfgs {
		pool := runner.NewPool(runner.PoolConfig{Name: name, Workers: rc.Workers, QueueSize: rc.QueueSize})
		if err := runners.Register(name, pool); err != nil {
			pool.Close()
			runners.Close()
			return nil, cli.NewConfigError("engine.runners."+name, err.Error())
		}
	}
	return runners, nil
}
