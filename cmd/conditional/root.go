package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/conditional/pkg/cli"
)

var (
	// Global flags
	cfgFile         string
	definitionsPath string
	outputFormat    string
	reportStyle     string
	logLevel        string
	verbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "conditional",
	Short: "Conditional - composable, short-circuiting condition evaluation",
	Long: `Conditional evaluates named AND/OR trees of predicates.

Definitions are loaded from a YAML document. Each node can be evaluated
synchronously or on a worker pool, delayed, bounded by a timeout, and
cancelled as soon as its result can no longer matter. Every evaluation is
recorded in a journal of runs with the full invocation log.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.ExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and CONDITIONAL_* variables when empty)")
	rootCmd.PersistentFlags().StringVarP(&definitionsPath, "definitions", "d", "", "override definitions path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, csv, pretty)")
	rootCmd.PersistentFlags().StringVar(&reportStyle, "style", "auto", "pretty output style (auto, dark, light, notty, plain)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
