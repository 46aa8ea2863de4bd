// Package report formats journaled runs as Markdown and renders that
// Markdown for terminals with glamour.
//
//	md := report.Run(run)
//	r, err := report.NewRenderer(report.StyleAuto, 100)
//	out, err := r.Render(md)
//
// The invocation tree is rebuilt from the run's events: every invocation
// is listed under its parent in dispatch order with its outcome and
// duration. Invocations that never logged a finished entry show as
// "unfinished".
package report
