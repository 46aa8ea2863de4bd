package definition

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/conditional/pkg/condition"
	"mercator-hq/conditional/pkg/runner"
)

func buildSample(t *testing.T, runners *runner.Registry) *Set {
	t.Helper()
	doc, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	set, err := Build(doc, NewRegistry(), runners)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return set
}

func TestBuild(t *testing.T) {
	set := buildSample(t, nil)

	if names := set.Names(); len(names) != 2 || names[0] != "can-deploy" || names[1] != "any-flag" {
		t.Errorf("Names() = %v, want declaration order", names)
	}
	if got := set.Description("can-deploy"); got != "admins under load" {
		t.Errorf("Description() = %q", got)
	}

	deploy, err := set.Get("can-deploy")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if deploy.String() != "deploy" {
		t.Errorf("String() = %q, want deploy", deploy.String())
	}

	composite, ok := deploy.(*condition.Composite)
	if !ok {
		t.Fatalf("root = %T, want *condition.Composite", deploy)
	}
	children := composite.Conditions()
	if children[0].String() != "state.equals" {
		t.Errorf("unaliased leaf renders %q, want its predicate name", children[0].String())
	}
	if attrs := children[1].Attributes(); !attrs.Async || attrs.Timeout == 0 {
		t.Errorf("jsonlogic attrs = %+v, want async with timeout", attrs)
	}

	if _, err := set.Get("missing"); !errors.Is(err, ErrDefinitionNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrDefinitionNotFound", err)
	}
}

func TestBuild_Evaluate(t *testing.T) {
	set := buildSample(t, nil)

	tests := []struct {
		name     string
		override map[string]any
		want     bool
	}{
		{name: "seed state", want: true},
		{name: "guest", override: map[string]any{"role": "guest"}, want: false},
		{name: "overloaded", override: map[string]any{"load": 0.95}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := set.State()
			for k, v := range tt.override {
				state[k] = v
			}

			c, _ := set.Get("can-deploy")
			got, err := condition.Evaluate(context.Background(), c, condition.NewRunContext(condition.WithState(state)))
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuild_StateIsCopied(t *testing.T) {
	set := buildSample(t, nil)

	state := set.State()
	state["role"] = "guest"

	if set.State()["role"] != "admin" {
		t.Error("State() must return a copy")
	}
}

func TestBuild_Runners(t *testing.T) {
	doc, err := Parse([]byte("conditions:\n  - {name: a, root: {predicate: \"true\", runner: io}}\n"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Build(doc, NewRegistry(), nil); !IsValidationError(err) {
		t.Errorf("Build() without runners error = %v, want validation error", err)
	}

	pool := runner.NewPool(runner.PoolConfig{Name: "io", Workers: 1})
	defer pool.Close()
	runners := runner.NewRegistry()
	if err := runners.Register("io", pool); err != nil {
		t.Fatal(err)
	}

	set, err := Build(doc, NewRegistry(), runners)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	c, _ := set.Get("a")
	if attrs := c.Attributes(); !attrs.Async || attrs.Runner != pool {
		t.Errorf("attrs = %+v, want async on the io pool", attrs)
	}

	got, err := condition.Evaluate(context.Background(), c, condition.NewRunContext())
	if err != nil || !got {
		t.Errorf("Evaluate() = %v, %v, want true", got, err)
	}
}
