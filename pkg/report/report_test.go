package report

import (
	"strings"
	"testing"
	"time"

	"mercator-hq/conditional/pkg/journal"
)

func sampleRun() *journal.Run {
	at := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	return &journal.Run{
		ID:         "6f1c2d4e-0000-4000-8000-000000000001",
		Definition: "can-deploy",
		Condition:  "(admin || slow)",
		Mode:       "declared",
		StartedAt:  at,
		Duration:   25 * time.Millisecond,
		Result:     journal.ResultTrue,
		Value:      true,
		Events: []journal.Event{
			{Seq: 1, Kind: "started", InvocationID: 1, Condition: "(admin || slow)", Operator: "||", At: at},
			{Seq: 2, Kind: "started", InvocationID: 2, ParentID: 1, Condition: "admin", At: at},
			{Seq: 3, Kind: "started", InvocationID: 3, ParentID: 1, Condition: "slow", Async: true, At: at},
			{Seq: 4, Kind: "finished", InvocationID: 2, ParentID: 1, Condition: "admin", At: at, Duration: 2 * time.Millisecond, Outcome: "true"},
			{Seq: 5, Kind: "finished", InvocationID: 1, Condition: "(admin || slow)", Operator: "||", At: at, Duration: 25 * time.Millisecond, Outcome: "true"},
		},
	}
}

func TestRun(t *testing.T) {
	md := Run(sampleRun())

	for _, want := range []string{
		"# can-deploy",
		"| Result | **true** |",
		"| Duration | 25ms |",
		"## Invocations",
		"- `(admin || slow)` **true** 25ms\n",
		"  - `admin` **true** 2ms\n",
		"  - `slow` **unfinished** _async_\n",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q\n%s", want, md)
		}
	}

	// Children follow dispatch order.
	if strings.Index(md, "`admin`") > strings.Index(md, "`slow`") {
		t.Error("admin should be listed before slow")
	}
}

func TestRun_Error(t *testing.T) {
	run := sampleRun()
	run.Result = journal.ResultFailed
	run.Error = "condition fail: quota | exceeded"
	run.Events = nil

	md := Run(run)
	if !strings.Contains(md, `| Error | condition fail: quota \| exceeded |`) {
		t.Errorf("error row not escaped:\n%s", md)
	}
	if strings.Contains(md, "## Invocations") {
		t.Error("run without events should have no invocation section")
	}
}

func TestRun_InvocationErrorKeepsPipes(t *testing.T) {
	run := sampleRun()
	run.Events = append(run.Events, journal.Event{
		Seq: 6, Kind: "finished", InvocationID: 3, ParentID: 1, Condition: "slow", Async: true,
		Duration: time.Millisecond, Outcome: "failed", Error: "quota | exceeded\nretry later",
	})

	md := Run(run)
	if want := "  - `slow` **failed** 1ms _async_: quota | exceeded retry later\n"; !strings.Contains(md, want) {
		t.Errorf("report missing %q\n%s", want, md)
	}
	if want := "| Condition | `(admin \\|\\| slow)` |"; !strings.Contains(md, want) {
		t.Errorf("condition row should stay escaped, missing %q\n%s", want, md)
	}
}

func TestRuns(t *testing.T) {
	if got := Runs(nil); got != "_No runs._\n" {
		t.Errorf("Runs(nil) = %q", got)
	}

	md := Runs([]*journal.Run{sampleRun()})
	if !strings.Contains(md, "| 2026-03-04T12:00:00Z | can-deploy | true | 25ms |") {
		t.Errorf("unexpected table:\n%s", md)
	}
}

func TestRenderer(t *testing.T) {
	tests := []struct {
		name    string
		style   Style
		wantErr bool
	}{
		{name: "plain", style: StylePlain},
		{name: "notty", style: StyleNoTTY},
		{name: "dark", style: StyleDark},
		{name: "unknown", style: "neon", wantErr: true},
	}

	md := Run(sampleRun())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRenderer(tt.style, 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewRenderer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			out, err := r.Render(md)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if tt.style == StylePlain && out != md {
				t.Error("plain renderer changed the markdown")
			}
			if !strings.Contains(out, "can-deploy") {
				t.Errorf("rendered output lost the title:\n%s", out)
			}
		})
	}
}
