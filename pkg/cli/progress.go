package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports the outcomes of a fixed number of evaluations.
type ProgressReporter interface {
	// Start resets the reporter for total evaluations.
	Start(total int)
	// Record counts one finished evaluation with its outcome.
	Record(outcome string)
	// Finish ends the progress line.
	Finish()
	// Error reports a failure that stops the loop.
	Error(err error)
}

// OutcomeProgress renders one status line with a bar and a tally per
// outcome, redrawn in place.
type OutcomeProgress struct {
	mu      sync.Mutex
	w       io.Writer
	now     func() time.Time
	total   int
	done    int
	tally   map[string]int
	started time.Time
}

const progressWidth = 24

// NewProgressReporter returns a reporter writing to w. A nil w writes to
// os.Stderr.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &OutcomeProgress{w: w, now: time.Now}
}

func (p *OutcomeProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total, p.done = total, 0
	p.tally = make(map[string]int)
	p.started = p.now()
	p.draw()
}

func (p *OutcomeProgress) Record(outcome string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.tally[outcome]++
	p.draw()
}

func (p *OutcomeProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total > 0 {
		fmt.Fprintln(p.w)
	}
}

func (p *OutcomeProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\nerror: %v\n", err)
}

// draw writes the line for the current state. Callers hold mu.
func (p *OutcomeProgress) draw() {
	if p.total <= 0 {
		return
	}

	filled := min(progressWidth*p.done/p.total, progressWidth)
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", progressWidth-filled)

	outcomes := make([]string, 0, len(p.tally))
	for outcome := range p.tally {
		outcomes = append(outcomes, outcome)
	}
	slices.Sort(outcomes)
	counts := make([]string, len(outcomes))
	for i, outcome := range outcomes {
		counts[i] = fmt.Sprintf("%s=%d", outcome, p.tally[outcome])
	}

	line := fmt.Sprintf("\reval %d/%d [%s]", p.done, p.total, bar)
	if len(counts) > 0 {
		line += " " + strings.Join(counts, " ")
	}
	if elapsed := p.now().Sub(p.started); elapsed > 0 && p.done > 0 {
		line += fmt.Sprintf(" %.1f/s", float64(p.done)/elapsed.Seconds())
	}
	fmt.Fprint(p.w, line)
}
