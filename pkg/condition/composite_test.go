package condition

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/conditional/pkg/runner"
)

var errBoom = errors.New("boom")

func value(v bool) Func {
	return func(context.Context, *RunContext) (bool, error) {
		return v, nil
	}
}

// blocker is a function that blocks until its context is cancelled.
type blocker struct {
	started   chan struct{}
	cancelled atomic.Bool
	err       error
}

func newBlocker(err error) *blocker {
	return &blocker{started: make(chan struct{}), err: err}
}

func (p *blocker) fn() Func {
	return func(ctx context.Context, rc *RunContext) (bool, error) {
		close(p.started)
		<-ctx.Done()
		p.cancelled.Store(true)
		return true, p.err
	}
}

// afterStart returns v once the blocker is running.
func (p *blocker) afterStart(v bool) Func {
	return func(context.Context, *RunContext) (bool, error) {
		<-p.started
		return v, nil
	}
}

func (p *blocker) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-p.started:
	case <-time.After(time.Second):
		t.Fatal("blocker never started")
	}
}

func settle(t *testing.T, rc *RunContext) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rc.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestComposite_FailurePriority(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		want      bool
		wantErr   bool
	}{
		{name: "true and failed", condition: And(True(), Failed(errBoom)), wantErr: true},
		{name: "false and failed", condition: And(False(), Failed(errBoom)), want: false},
		{name: "false or failed", condition: Or(False(), Failed(errBoom)), wantErr: true},
		{name: "true or failed", condition: Or(True(), Failed(errBoom)), want: true},
		{name: "failed and false", condition: And(Failed(errBoom), False()), wantErr: true},
		{name: "failed or true", condition: Or(Failed(errBoom), True()), wantErr: true},
		{name: "async true and failed", condition: And(True(), Failed(errBoom)).Parallel(), wantErr: true},
		{name: "async false or failed", condition: Or(False(), Failed(errBoom)).Parallel(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(context.Background(), tt.condition, NewRunContext())
			if tt.wantErr {
				if !errors.Is(err, errBoom) {
					t.Fatalf("Evaluate() error = %v, want %v", err, errBoom)
				}
				var evalErr *EvaluationError
				if !errors.As(err, &evalErr) {
					t.Fatalf("Evaluate() error = %T, want *EvaluationError", err)
				}
				if evalErr.Condition != "failed" {
					t.Errorf("EvaluationError.Condition = %q, want failed", evalErr.Condition)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComposite_Fold(t *testing.T) {
	inputs := [][]bool{
		{true}, {false},
		{true, true}, {true, false}, {false, true}, {false, false},
		{true, true, true}, {true, false, true}, {false, false, true}, {false, false, false},
	}

	for _, op := range []Operator{AND, OR} {
		for _, values := range inputs {
			children := make([]Condition, len(values))
			want := op == AND
			for i, v := range values {
				children[i] = Of(value(v))
				if op == AND {
					want = want && v
				} else {
					want = want || v
				}
			}
			c, err := NewComposite(op, children)
			if err != nil {
				t.Fatalf("NewComposite() error = %v", err)
			}

			for mode, tree := range map[string]*Composite{
				"declared":   c,
				"sequential": c.Sequential(),
				"parallel":   c.Parallel(),
			} {
				t.Run(fmt.Sprintf("%s/%v/%s", op, values, mode), func(t *testing.T) {
					got, err := Evaluate(context.Background(), tree, NewRunContext())
					if err != nil {
						t.Fatalf("Evaluate() error = %v", err)
					}
					if got != want {
						t.Errorf("Evaluate() = %v, want %v", got, want)
					}
				})
			}
		}
	}
}

func TestComposite_Timing(t *testing.T) {
	const (
		short = 200 * time.Millisecond
		long  = 300 * time.Millisecond
	)

	pool := runner.NewPool(runner.PoolConfig{Name: "single", Workers: 1})
	defer pool.Close()

	a := Delayed(value(true), short, WithAlias("a"))
	b := Delayed(value(true), long, WithAlias("b"))

	tests := []struct {
		name string
		tree *Composite
		min  time.Duration
		max  time.Duration
	}{
		{name: "and parallel", tree: And(a, b).Parallel(), min: long, max: long + 150*time.Millisecond},
		{name: "and sequential", tree: And(a, b).Sequential(), min: short + long, max: short + long + 150*time.Millisecond},
		{name: "and parallel single worker", tree: And(a, b).ParallelOn(pool), min: short + long, max: short + long + 150*time.Millisecond},
		{name: "or sequential", tree: Or(a, b).Sequential(), min: short, max: short + 80*time.Millisecond},
		{name: "or parallel", tree: Or(a, b).Parallel(), min: short, max: short + 80*time.Millisecond},
		{name: "or parallel single worker", tree: Or(a, b).ParallelOn(pool), min: short, max: short + 80*time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			got, err := Evaluate(context.Background(), tt.tree, NewRunContext())
			elapsed := time.Since(start)

			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if !got {
				t.Error("Evaluate() = false, want true")
			}
			if elapsed < tt.min || elapsed > tt.max {
				t.Errorf("elapsed = %v, want between %v and %v", elapsed, tt.min, tt.max)
			}
		})
	}
}

func TestComposite_ShortCircuitCancelsPending(t *testing.T) {
	p := newBlocker(nil)
	slow := Async(p.fn(), WithAlias("slow"))

	rc := NewRunContext()
	got, err := Evaluate(context.Background(), Or(slow, Of(p.afterStart(true))), rc)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !got {
		t.Error("Evaluate() = false, want true")
	}

	settle(t, rc)
	if !p.cancelled.Load() {
		t.Error("pending sibling was not cancelled")
	}

	var slowEntry *LogEntry
	for _, entry := range rc.Completions() {
		if entry.Condition == "slow" {
			slowEntry = &entry
		}
	}
	if slowEntry == nil {
		t.Fatal("no finished entry for cancelled sibling")
	}
	if slowEntry.Outcome != OutcomeCancelled {
		t.Errorf("cancelled sibling outcome = %s, want %s", slowEntry.Outcome, OutcomeCancelled)
	}
}

func TestComposite_SyncFailureStopsDispatch(t *testing.T) {
	var ran atomic.Bool
	counting := Of(func(context.Context, *RunContext) (bool, error) {
		ran.Store(true)
		return true, nil
	})

	rc := NewRunContext()
	_, err := Evaluate(context.Background(), And(True(), Failed(errBoom), counting), rc)
	if !errors.Is(err, errBoom) {
		t.Fatalf("Evaluate() error = %v, want %v", err, errBoom)
	}
	if ran.Load() {
		t.Error("child after a synchronous failure was dispatched")
	}
	if got := len(rc.Completions()); got != 3 {
		t.Errorf("completions = %d, want 3 (composite, true, failed)", got)
	}
}

func TestComposite_ShortCircuitSkipsLaterChildren(t *testing.T) {
	var ran atomic.Bool
	counting := Async(func(context.Context, *RunContext) (bool, error) {
		ran.Store(true)
		return true, nil
	})

	got, err := Evaluate(context.Background(), And(False(), counting), NewRunContext())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got {
		t.Error("Evaluate() = true, want false")
	}
	if ran.Load() {
		t.Error("child after a determining value was dispatched")
	}
}

func TestComposite_RaceFirstFailureWins(t *testing.T) {
	fails := Async(func(context.Context, *RunContext) (bool, error) {
		return false, errBoom
	}, WithDelay(20*time.Millisecond))
	late := Async(value(false), WithDelay(300*time.Millisecond))

	start := time.Now()
	_, err := Evaluate(context.Background(), And(late, fails), NewRunContext())
	if !errors.Is(err, errBoom) {
		t.Fatalf("Evaluate() error = %v, want %v", err, errBoom)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("elapsed = %v, failure should preempt the pending sibling", elapsed)
	}
}

func TestComposite_RaceFirstValueWins(t *testing.T) {
	p := newBlocker(errBoom)
	fails := Async(p.fn())
	early := Async(p.afterStart(false))

	rc := NewRunContext()
	got, err := Evaluate(context.Background(), And(fails, early), rc)
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if got {
		t.Error("Evaluate() = true, want false")
	}

	settle(t, rc)
	if !p.cancelled.Load() {
		t.Error("pending sibling was not cancelled")
	}
}

func TestComposite_CancelsNestedDescendants(t *testing.T) {
	p := newBlocker(nil)
	nested := And(True(), Async(p.fn(), WithAlias("deep"))).With(WithAsync())
	tree := Or(nested, Async(p.afterStart(true)))

	rc := NewRunContext()
	got, err := Evaluate(context.Background(), tree, rc)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !got {
		t.Error("Evaluate() = false, want true")
	}

	settle(t, rc)
	if !p.cancelled.Load() {
		t.Error("nested descendant was not cancelled")
	}
}

func TestComposite_NestedFailureKeepsOrigin(t *testing.T) {
	tree := And(True(), Or(False(), And(True(), Failed(errBoom, WithAlias("inner")))))

	_, err := Evaluate(context.Background(), tree, NewRunContext())
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Evaluate() error = %v, want *EvaluationError", err)
	}
	if evalErr.Condition != "inner" {
		t.Errorf("EvaluationError.Condition = %q, want inner", evalErr.Condition)
	}
	if !errors.Is(evalErr.Cause, errBoom) {
		t.Errorf("EvaluationError.Cause = %v, want %v", evalErr.Cause, errBoom)
	}
	var nested *EvaluationError
	if errors.As(evalErr.Cause, &nested) {
		t.Error("failure was wrapped more than once")
	}
}

func TestNewComposite_Errors(t *testing.T) {
	tests := []struct {
		name       string
		conditions []Condition
		opts       []Option
		wantErr    error
	}{
		{name: "empty", conditions: nil, wantErr: ErrEmptyConditions},
		{name: "nil child", conditions: []Condition{True(), nil}, wantErr: ErrNilCondition},
		{name: "typed nil child", conditions: []Condition{(*Leaf)(nil)}, wantErr: ErrNilCondition},
		{name: "negative delay", conditions: []Condition{True()}, opts: []Option{WithDelay(-time.Second)}, wantErr: ErrInvalidDelay},
		{name: "negative timeout", conditions: []Condition{True()}, opts: []Option{WithTimeout(-time.Second)}, wantErr: ErrInvalidTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewComposite(AND, tt.conditions, tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewComposite() error = %v, want %v", err, tt.wantErr)
			}
			if !IsConstruction(err) {
				t.Errorf("IsConstruction(%v) = false", err)
			}
		})
	}
}

func TestComposite_InvalidChildAtEvaluation(t *testing.T) {
	_, err := Evaluate(context.Background(), And(True(), nil), NewRunContext())
	if !errors.Is(err, ErrNilCondition) {
		t.Errorf("Evaluate() error = %v, want ErrNilCondition", err)
	}
}

func TestComposite_VariantsArePure(t *testing.T) {
	pool := runner.NewPool(runner.PoolConfig{Workers: 1})
	defer pool.Close()

	inner := Or(True(WithAsync()), False())
	tree := And(True(), inner).With(WithAlias("root"))

	parallel := tree.ParallelOn(pool)
	sequential := parallel.Sequential()

	// The receiver is unchanged.
	if tree.Conditions()[0].Attributes().Async {
		t.Error("ParallelOn mutated the receiver")
	}
	if !inner.Conditions()[0].Attributes().Async {
		t.Error("Sequential mutated a shared subtree")
	}

	for _, child := range parallel.Conditions() {
		attrs := child.Attributes()
		if !attrs.Async || attrs.Runner != pool {
			t.Errorf("ParallelOn child %s: async=%v runner=%v", child, attrs.Async, attrs.Runner)
		}
	}
	nested := parallel.Conditions()[1].(*Composite)
	for _, child := range nested.Conditions() {
		if !child.Attributes().Async {
			t.Errorf("ParallelOn did not reach nested child %s", child)
		}
	}
	for _, child := range sequential.Conditions()[1].(*Composite).Conditions() {
		attrs := child.Attributes()
		if attrs.Async || attrs.Runner != nil {
			t.Errorf("Sequential nested child %s: async=%v runner=%v", child, attrs.Async, attrs.Runner)
		}
	}

	if parallel.Attributes().Alias != "root" || parallel.Attributes().Async {
		t.Error("variants must keep the root's own attributes")
	}
}

func TestComposite_Timeout(t *testing.T) {
	p := newBlocker(nil)
	tree := And(True(), Async(p.fn())).With(WithTimeout(100*time.Millisecond), WithAlias("bounded"))

	rc := NewRunContext()
	_, err := Evaluate(context.Background(), tree, rc)
	if !IsTimeout(err) {
		t.Fatalf("Evaluate() error = %v, want timeout", err)
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Condition != "bounded" {
		t.Errorf("timeout should originate at the composite, got %v", err)
	}

	p.waitStarted(t)
	settle(t, rc)
	if !p.cancelled.Load() {
		t.Error("timed out composite did not cancel its children")
	}
}

func TestComposite_DispatchFailureNamesChild(t *testing.T) {
	closed := runner.NewPool(runner.PoolConfig{Workers: 1})
	if err := closed.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	tests := []struct {
		name  string
		child *Leaf
		rc    *RunContext
		want  error
	}{
		{
			name:  "closed pool",
			child: True(WithAlias("pooled"), WithRunner(closed)),
			rc:    NewRunContext(),
			want:  runner.ErrPoolClosed,
		},
		{
			name:  "no runner",
			child: True(WithAlias("pooled"), WithAsync()),
			rc:    NewRunContext(WithDefaultRunner(nil)),
			want:  ErrNoRunner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(context.Background(), Or(False(), tt.child), tt.rc)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Evaluate() error = %v, want %v", err, tt.want)
			}

			var origin string
			var evalErr *EvaluationError
			var constructionErr *ConstructionError
			switch {
			case errors.As(err, &constructionErr):
				origin = constructionErr.Condition
			case errors.As(err, &evalErr):
				origin = evalErr.Condition
			}
			if origin != "pooled" {
				t.Errorf("failure origin = %q, want pooled (error %v)", origin, err)
			}
		})
	}
}
