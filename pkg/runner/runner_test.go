package runner

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolved(t *testing.T) {
	sentinel := errors.New("boom")

	tests := []struct {
		name      string
		value     bool
		err       error
		wantValue bool
	}{
		{name: "true", value: true, wantValue: true},
		{name: "false", value: false, wantValue: false},
		{name: "error", err: sentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Resolved(tt.value, tt.err)
			if !h.IsDone() {
				t.Fatal("Resolved handle should be done")
			}
			value, err := h.Result()
			if !errors.Is(err, tt.err) {
				t.Errorf("Result() error = %v, want %v", err, tt.err)
			}
			if value != tt.wantValue {
				t.Errorf("Result() value = %v, want %v", value, tt.wantValue)
			}
			if h.Cancel() {
				t.Error("Cancel() on a resolved handle should be a no-op")
			}
		})
	}
}

func TestGoRunner_Submit(t *testing.T) {
	r := NewGoRunner()

	h := r.Submit(context.Background(), func(ctx context.Context) (bool, error) {
		return true, nil
	})

	value, err := h.Await(context.Background())
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if !value {
		t.Error("Await() = false, want true")
	}
}

func TestHandle_ResultPending(t *testing.T) {
	release := make(chan struct{})
	h := NewGoRunner().Submit(context.Background(), func(ctx context.Context) (bool, error) {
		<-release
		return true, nil
	})
	defer close(release)

	if _, err := h.Result(); !errors.Is(err, ErrPending) {
		t.Errorf("Result() error = %v, want ErrPending", err)
	}
}

func TestHandle_Cancel(t *testing.T) {
	started := make(chan struct{})
	observed := make(chan error, 1)

	h := NewGoRunner().Submit(context.Background(), func(ctx context.Context) (bool, error) {
		close(started)
		<-ctx.Done()
		observed <- ctx.Err()
		return true, nil
	})

	<-started
	if !h.Cancel() {
		t.Fatal("Cancel() on pending handle = false, want true")
	}
	if h.Cancel() {
		t.Error("second Cancel() = true, want false")
	}
	if !h.IsCancelled() {
		t.Error("IsCancelled() = false after Cancel")
	}

	value, err := h.Await(context.Background())
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Await() error = %v, want ErrCancelled", err)
	}
	if value {
		t.Error("cancelled handle should not report the task's value")
	}

	select {
	case err := <-observed:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("task context error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
}

func TestHandle_AwaitContextDone(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	h := NewGoRunner().Submit(context.Background(), func(ctx context.Context) (bool, error) {
		<-release
		return true, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := h.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Await() error = %v, want DeadlineExceeded", err)
	}
	if h.IsDone() {
		t.Error("Await timing out must not resolve the handle")
	}
}

func TestExecute_RecoversPanic(t *testing.T) {
	h := NewGoRunner().Submit(context.Background(), func(ctx context.Context) (bool, error) {
		panic("kaboom")
	})

	_, err := h.Await(context.Background())
	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Await() error = %v, want *PanicError", err)
	}
	if panicErr.Value != "kaboom" {
		t.Errorf("PanicError.Value = %v, want kaboom", panicErr.Value)
	}
	if len(panicErr.Stack) == 0 {
		t.Error("PanicError.Stack should be captured")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	pool := NewPool(PoolConfig{Name: "io", Workers: 1})

	if err := reg.Register("io", pool); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register("", pool); err == nil {
		t.Error("Register() with empty name should fail")
	}
	if err := reg.Register("nil", nil); err == nil {
		t.Error("Register() with nil runner should fail")
	}

	got, err := reg.Get("io")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != pool {
		t.Error("Get() returned a different runner")
	}

	if _, err := reg.Get("missing"); !errors.Is(err, ErrRunnerNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrRunnerNotFound", err)
	}

	if names := reg.Names(); len(names) != 1 || names[0] != "io" {
		t.Errorf("Names() = %v, want [io]", names)
	}

	if err := reg.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	h := pool.Submit(context.Background(), func(ctx context.Context) (bool, error) { return true, nil })
	if _, err := h.Result(); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Submit after registry Close: error = %v, want ErrPoolClosed", err)
	}
}
