package condition

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"mercator-hq/conditional/pkg/runner"
)

type recordingObserver struct {
	mu       sync.Mutex
	started  []LogEntry
	finished []LogEntry
}

func (o *recordingObserver) ConditionStarted(ctx context.Context, entry LogEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, entry)
}

func (o *recordingObserver) ConditionFinished(ctx context.Context, entry LogEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, entry)
}

func TestRunContext_State(t *testing.T) {
	seed := map[string]any{"a": 1}
	rc := NewRunContext(WithState(seed))
	seed["b"] = 2

	if _, ok := rc.Get("b"); ok {
		t.Error("WithState must copy the seed map")
	}

	rc.Put("c", "three")
	if v, ok := rc.Get("c"); !ok || v != "three" {
		t.Errorf("Get(c) = %v, %v", v, ok)
	}

	snapshot := rc.Snapshot()
	snapshot["a"] = 100
	if v, _ := rc.Get("a"); v != 1 {
		t.Error("Snapshot must return a copy")
	}

	rc.Delete("a")
	if _, ok := rc.Get("a"); ok {
		t.Error("Delete did not remove the key")
	}
}

func TestRunContext_ConcurrentAccess(t *testing.T) {
	rc := NewRunContext()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			rc.Put(key, i)
			rc.Get(key)
			rc.AppendLog(LogEntry{Condition: key, Kind: EventFinished})
		}(i)
	}
	wg.Wait()

	logs := rc.Logs()
	if len(logs) != 50 {
		t.Fatalf("Logs() = %d entries, want 50", len(logs))
	}
	for i, entry := range logs {
		if entry.Seq != uint64(i+1) {
			t.Errorf("entry %d Seq = %d, want %d", i, entry.Seq, i+1)
		}
	}
	if len(rc.Snapshot()) != 50 {
		t.Errorf("Snapshot() = %d keys, want 50", len(rc.Snapshot()))
	}
}

func TestRunContext_IDs(t *testing.T) {
	a, b := NewRunContext(), NewRunContext()
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("run IDs must be unique, got %q and %q", a.ID(), b.ID())
	}
	if got := NewRunContext(WithRunID("fixed")).ID(); got != "fixed" {
		t.Errorf("WithRunID: ID() = %q", got)
	}
}

func TestRunContext_DefaultRunner(t *testing.T) {
	if NewRunContext().Runner() != runner.Default() {
		t.Error("default runner should be runner.Default()")
	}
	if NewRunContext(WithDefaultRunner(nil)).Runner() != nil {
		t.Error("WithDefaultRunner(nil) should disable the fallback runner")
	}
}

func TestRunContext_Observer(t *testing.T) {
	observer := &recordingObserver{}
	rc := NewRunContext(WithObserver(observer))

	if _, err := Evaluate(context.Background(), And(True(), Or(False(), True().With(WithAsync()))), rc); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if len(observer.started) != 5 || len(observer.finished) != 5 {
		t.Errorf("observer saw %d started / %d finished, want 5 / 5", len(observer.started), len(observer.finished))
	}
	for _, entry := range observer.finished {
		if entry.Seq == 0 {
			t.Error("observer should receive entries after their sequence number is assigned")
		}
	}
}

func TestRunContext_Clock(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var mu sync.Mutex
	ticks := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}

	rc := NewRunContext(WithClock(clock))
	if _, err := Evaluate(context.Background(), True(), rc); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	completions := rc.Completions()
	if len(completions) != 1 {
		t.Fatalf("completions = %d, want 1", len(completions))
	}
	if got := completions[0].Duration; got != time.Second {
		t.Errorf("Duration = %v, want 1s from the injected clock", got)
	}
	if !rc.CreatedAt().Equal(base.Add(time.Second)) {
		t.Errorf("CreatedAt() = %v", rc.CreatedAt())
	}
}

func TestRunContext_WaitReturnsImmediatelyWhenIdle(t *testing.T) {
	rc := NewRunContext()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rc.Wait(ctx); err != nil {
		t.Errorf("Wait() on idle context error = %v", err)
	}
}
