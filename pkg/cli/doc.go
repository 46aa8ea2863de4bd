/*
Package cli provides command-line helpers for the conditional command.

Output Formatting:

Command results are written in one of four formats:

	formatter, err := cli.NewFormatter(cli.FormatPretty, renderer)
	if err != nil {
		return err
	}
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Values implementing Tabular are laid out as columns in text and written
as rows in CSV. Values implementing Markdowner are rendered by the pretty
formatter.

Progress Reporting:

Repeated evaluations report a tally of outcomes and throughput on stderr:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(n)
	for range n {
		result, _ := svc.Evaluate(ctx, name, req)
		progress.Record(string(result.Result))
	}
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

Exit Codes:

An ExitError carries the process exit code for a command whose outcome is
not a plain success, such as an evaluation that returned false.
*/
package cli
