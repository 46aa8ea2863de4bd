package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mercator-hq/conditional/pkg/definition"
	"mercator-hq/conditional/pkg/journal"
	"mercator-hq/conditional/pkg/report"
	"mercator-hq/conditional/pkg/service"
)

// Exit codes of eval, watch and schedule.
const (
	exitTrue      = 0
	exitFalse     = 1
	exitFailed    = 2
	exitTimeout   = 3
	exitCancelled = 4
)

func exitCodeFor(result journal.Result) int {
	switch result {
	case journal.ResultTrue:
		return exitTrue
	case journal.ResultFalse:
		return exitFalse
	case journal.ResultTimeout:
		return exitTimeout
	case journal.ResultCancelled:
		return exitCancelled
	default:
		return exitFailed
	}
}

// resultView presents one evaluation.
type resultView struct {
	result *service.Result
}

func (v resultView) String() string {
	r := v.result
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (%s)\n  %s", r.Definition, r.Result, r.Duration.Round(time.Microsecond), r.Condition)
	if r.Error != "" {
		fmt.Fprintf(&b, "\n  error: %s", r.Error)
	}
	return b.String()
}

func (v resultView) Header() []string {
	return []string{"definition", "result", "duration", "condition", "error", "run_id"}
}

func (v resultView) Rows() [][]string {
	r := v.result
	return [][]string{{r.Definition, string(r.Result), r.Duration.String(), r.Condition, r.Error, r.RunID}}
}

func (v resultView) Markdown() string {
	return report.Run(runOf(v.result))
}

func (v resultView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.result)
}

// runOf converts an evaluation result into its journal form.
func runOf(r *service.Result) *journal.Run {
	run := &journal.Run{
		ID:         r.RunID,
		Definition: r.Definition,
		Condition:  r.Condition,
		Mode:       string(r.Mode),
		Duration:   r.Duration,
		Result:     r.Result,
		Value:      r.Value,
		Error:      r.Error,
		Events:     r.Events,
	}
	if len(r.Events) > 0 {
		run.StartedAt = r.Events[0].At
	}
	return run
}

// summaryView aggregates repeated evaluations of one definition.
type summaryView struct {
	Definition string                 `json:"definition"`
	Runs       int                    `json:"runs"`
	Results    map[journal.Result]int `json:"results"`
	Total      time.Duration          `json:"total"`
	Mean       time.Duration          `json:"mean"`
	Max        time.Duration          `json:"max"`
}

func newSummary(definition string) *summaryView {
	return &summaryView{Definition: definition, Results: make(map[journal.Result]int)}
}

func (s *summaryView) add(r *service.Result) {
	s.Runs++
	s.Results[r.Result]++
	s.Total += r.Duration
	s.Max = max(s.Max, r.Duration)
	s.Mean = s.Total / time.Duration(s.Runs)
}

// exitCode is 0 when every run was true, otherwise the code of the most
// frequent other outcome.
func (s *summaryView) exitCode() int {
	worst, count := journal.ResultTrue, 0
	for _, r := range []journal.Result{journal.ResultFalse, journal.ResultFailed, journal.ResultTimeout, journal.ResultCancelled} {
		if s.Results[r] > count {
			worst, count = r, s.Results[r]
		}
	}
	return exitCodeFor(worst)
}

func (s *summaryView) Header() []string {
	return []string{"result", "count"}
}

func (s *summaryView) Rows() [][]string {
	var rows [][]string
	for _, r := range []journal.Result{journal.ResultTrue, journal.ResultFalse, journal.ResultFailed, journal.ResultTimeout, journal.ResultCancelled} {
		if n := s.Results[r]; n > 0 {
			rows = append(rows, []string{string(r), strconv.Itoa(n)})
		}
	}
	return rows
}

func (s *summaryView) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%d runs, mean %s, max %s\n\n| Result | Count |\n|---|---|\n",
		s.Definition, s.Runs, s.Mean.Round(time.Microsecond), s.Max.Round(time.Microsecond))
	for _, row := range s.Rows() {
		fmt.Fprintf(&b, "| %s | %s |\n", row[0], row[1])
	}
	return b.String()
}

// runsView presents journal query results.
type runsView []*journal.Run

func (v runsView) Header() []string {
	return []string{"started", "definition", "mode", "result", "duration", "run_id"}
}

func (v runsView) Rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, run := range v {
		rows = append(rows, []string{
			run.StartedAt.Local().Format(time.DateTime),
			run.Definition,
			run.Mode,
			string(run.Result),
			run.Duration.Round(time.Microsecond).String(),
			run.ID,
		})
	}
	return rows
}

func (v runsView) Markdown() string {
	return report.Runs(v)
}

func (v runsView) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]*journal.Run(v))
}

// runView presents one journaled run.
type runView struct {
	run *journal.Run
}

func (v runView) String() string {
	return strings.TrimRight(report.Run(v.run), "\n")
}

func (v runView) Markdown() string {
	return report.Run(v.run)
}

func (v runView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.run)
}

// definitionsView lists definitions of a valid document.
type definitionsView []definitionInfo

type definitionInfo struct {
	Name        string `json:"name"`
	Condition   string `json:"condition"`
	Description string `json:"description,omitempty"`
}

func (v definitionsView) Header() []string {
	return []string{"name", "condition", "description"}
}

func (v definitionsView) Rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, d := range v {
		rows = append(rows, []string{d.Name, d.Condition, d.Description})
	}
	return rows
}

// problemsView lists validation problems.
type problemsView []definition.Problem

func (v problemsView) Header() []string {
	return []string{"path", "problem"}
}

func (v problemsView) Rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, p := range v {
		rows = append(rows, []string{p.Path, p.Message})
	}
	return rows
}

func (v problemsView) MarshalJSON() ([]byte, error) {
	type problem struct {
		Path    string `json:"path"`
		Message string `json:"message"`
	}
	out := make([]problem, 0, len(v))
	for _, p := range v {
		out = append(out, problem{Path: p.Path, Message: p.Message})
	}
	return json.Marshal(out)
}
