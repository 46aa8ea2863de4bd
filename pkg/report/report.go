package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"mercator-hq/conditional/pkg/condition"
	"mercator-hq/conditional/pkg/journal"
)

const unfinished = "unfinished"

type node struct {
	event    journal.Event
	finished bool
	children []*node
}

// Run returns a Markdown report of one run.
func Run(run *journal.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", run.Definition)
	b.WriteString("| Field | Value |\n|---|---|\n")
	row(&b, "Run", "`"+run.ID+"`")
	row(&b, "Condition", "`"+escape(run.Condition)+"`")
	row(&b, "Mode", run.Mode)
	row(&b, "Result", "**"+string(run.Result)+"**")
	row(&b, "Started", run.StartedAt.UTC().Format(time.RFC3339Nano))
	row(&b, "Duration", formatDuration(run.Duration))
	if run.Error != "" {
		row(&b, "Error", escape(run.Error))
	}

	roots := tree(run.Events)
	if len(roots) > 0 {
		b.WriteString("\n## Invocations\n\n")
		for _, root := range roots {
			writeNode(&b, root, 0)
		}
	}
	return b.String()
}

// Runs returns a Markdown table summarizing runs.
func Runs(runs []*journal.Run) string {
	if len(runs) == 0 {
		return "_No runs._\n"
	}
	var b strings.Builder
	b.WriteString("| Started | Definition | Result | Duration | Run |\n|---|---|---|---|---|\n")
	for _, run := range runs {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | `%s` |\n",
			run.StartedAt.UTC().Format(time.RFC3339),
			escape(run.Definition),
			run.Result,
			formatDuration(run.Duration),
			run.ID,
		)
	}
	return b.String()
}

func row(b *strings.Builder, field, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", field, value)
}

// tree links invocations to their parents. Children keep dispatch order.
func tree(events []journal.Event) []*node {
	nodes := make(map[uint64]*node)
	var order []uint64

	for _, e := range events {
		n, ok := nodes[e.InvocationID]
		if !ok {
			n = &node{event: e}
			nodes[e.InvocationID] = n
			order = append(order, e.InvocationID)
		}
		if e.Kind == string(condition.EventFinished) {
			n.event = e
			n.finished = true
		}
	}
	slices.Sort(order)

	var roots []*node
	for _, id := range order {
		n := nodes[id]
		parent, ok := nodes[n.event.ParentID]
		if n.event.ParentID == 0 || !ok {
			roots = append(roots, n)
			continue
		}
		parent.children = append(parent.children, n)
	}
	return roots
}

func writeNode(b *strings.Builder, n *node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(b, "- `%s`", inline(n.event.Condition))

	outcome := unfinished
	if n.finished {
		outcome = n.event.Outcome
	}
	fmt.Fprintf(b, " **%s**", outcome)
	if n.finished {
		fmt.Fprintf(b, " %s", formatDuration(n.event.Duration))
	}
	if n.event.Async {
		b.WriteString(" _async_")
	}
	if n.finished && n.event.Error != "" {
		fmt.Fprintf(b, ": %s", inline(n.event.Error))
	}
	b.WriteString("\n")

	for _, child := range n.children {
		writeNode(b, child, depth+1)
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Millisecond:
		return d.String()
	default:
		return d.Round(10 * time.Microsecond).String()
	}
}

// escape prepares s for a table cell.
func escape(s string) string {
	return inline(strings.ReplaceAll(s, "|", `\|`))
}

// inline keeps s on one list line.
func inline(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
