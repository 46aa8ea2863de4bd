package condition

import (
	"context"

	"mercator-hq/conditional/pkg/runner"
)

// Operator combines child values.
type Operator int

const (
	AND Operator = iota
	OR
)

// String returns "AND" or "OR".
func (o Operator) String() string {
	if o == OR {
		return "OR"
	}
	return "AND"
}

func (o Operator) symbol() string {
	if o == OR {
		return "||"
	}
	return "&&"
}

// determines reports whether value alone decides the result.
func (o Operator) determines(value bool) bool {
	if o == OR {
		return value
	}
	return !value
}

func (o Operator) fold(values []bool) bool {
	result := o == AND
	for _, v := range values {
		if o == AND {
			result = result && v
		} else {
			result = result || v
		}
	}
	return result
}

// Composite combines ordered children under an operator.
type Composite struct {
	op         Operator
	conditions []Condition
	attrs      Attributes
}

// NewComposite creates a composite, rejecting empty or nil children.
func NewComposite(op Operator, conditions []Condition, opts ...Option) (*Composite, error) {
	c := newComposite(op, conditions, opts)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func newComposite(op Operator, conditions []Condition, opts []Option) *Composite {
	children := make([]Condition, len(conditions))
	copy(children, conditions)
	return &Composite{
		op:         op,
		conditions: children,
		attrs:      applyOptions(Attributes{}, opts),
	}
}

// And combines conditions with logical AND.
func And(first Condition, rest ...Condition) *Composite {
	return newComposite(AND, append([]Condition{first}, rest...), nil)
}

// Or combines conditions with logical OR.
func Or(first Condition, rest ...Condition) *Composite {
	return newComposite(OR, append([]Condition{first}, rest...), nil)
}

// Operator returns the composite's operator.
func (c *Composite) Operator() Operator {
	return c.op
}

// Conditions returns a copy of the children.
func (c *Composite) Conditions() []Condition {
	out := make([]Condition, len(c.conditions))
	copy(out, c.conditions)
	return out
}

// Attributes returns the composite's own attributes.
func (c *Composite) Attributes() Attributes {
	return c.attrs
}

// With returns a copy with opts applied to the composite itself.
func (c *Composite) With(opts ...Option) *Composite {
	clone := *c
	clone.attrs = applyOptions(c.attrs, opts)
	return &clone
}

// Sequential returns a copy whose descendants all run synchronously.
func (c *Composite) Sequential() *Composite {
	return c.rebuild(Attributes{Async: false})
}

// Parallel returns a copy whose descendants all run asynchronously on the
// run's default runner.
func (c *Composite) Parallel() *Composite {
	return c.rebuild(Attributes{Async: true})
}

// ParallelOn returns a copy whose descendants all run asynchronously on r.
// Nested composites occupy a worker while they wait for their children, so
// a small pool can starve on deep trees.
func (c *Composite) ParallelOn(r runner.TaskRunner) *Composite {
	return c.rebuild(Attributes{Async: true, Runner: r})
}

// rebuild copies the tree, setting dispatch on every descendant. The
// receiver keeps its own attributes.
func (c *Composite) rebuild(dispatch Attributes) *Composite {
	clone := *c
	clone.conditions = make([]Condition, len(c.conditions))
	for i, child := range c.conditions {
		if isNil(child) {
			clone.conditions[i] = child
			continue
		}
		if nested, ok := child.(*Composite); ok {
			child = nested.rebuild(dispatch)
		}
		attrs := child.Attributes()
		attrs.Async = dispatch.Async
		attrs.Runner = dispatch.Runner
		clone.conditions[i] = child.withAttributes(attrs)
	}
	return &clone
}

func (c *Composite) validate() error {
	if len(c.conditions) == 0 {
		return &ConstructionError{Condition: c.op.String(), Field: "conditions", Err: ErrEmptyConditions}
	}
	for _, child := range c.conditions {
		if isNil(child) {
			return &ConstructionError{Condition: c.op.String(), Field: "conditions", Err: ErrNilCondition}
		}
	}
	return c.attrs.validate(c.String())
}

func (c *Composite) operator() string {
	return c.op.String()
}

func (c *Composite) withAttributes(attrs Attributes) Condition {
	clone := *c
	clone.attrs = attrs
	return &clone
}

// body dispatches the children and decides the result. Returning cancels
// the derived context, and with it every descendant still running.
func (c *Composite) body(ctx context.Context, rc *RunContext) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handles := make([]*runner.Handle, 0, len(c.conditions))
	for i, child := range c.conditions {
		if err := ctx.Err(); err != nil {
			cancelAll(handles)
			return false, err
		}

		h := dispatch(ctx, child, rc)
		handles = append(handles, h)

		if !h.IsDone() {
			continue
		}
		value, err := h.Result()
		if err != nil {
			cancelAll(handles)
			return false, err
		}
		if c.op.determines(value) {
			rc.logger.Debug("composite short-circuited during dispatch",
				"operator", c.op.String(),
				"child", i,
				"value", value,
				"skipped", len(c.conditions)-i-1,
			)
			cancelAll(handles)
			return value, nil
		}
	}

	return c.race(ctx, rc, handles)
}

// race waits for the pending children. The first failure or determining
// value observed wins.
func (c *Composite) race(ctx context.Context, rc *RunContext, handles []*runner.Handle) (bool, error) {
	completed := make(chan int, len(handles))
	for i, h := range handles {
		go func(i int, h *runner.Handle) {
			select {
			case <-h.Done():
				completed <- i
			case <-ctx.Done():
			}
		}(i, h)
	}

	values := make([]bool, len(handles))
	for remaining := len(handles); remaining > 0; remaining-- {
		select {
		case i := <-completed:
			value, err := handles[i].Result()
			if err != nil {
				cancelAll(handles)
				return false, err
			}
			if c.op.determines(value) {
				rc.logger.Debug("composite short-circuited",
					"operator", c.op.String(),
					"child", i,
					"value", value,
				)
				cancelAll(handles)
				return value, nil
			}
			values[i] = value
		case <-ctx.Done():
			cancelAll(handles)
			return false, ctx.Err()
		}
	}

	return c.op.fold(values), nil
}

func cancelAll(handles []*runner.Handle) {
	for _, h := range handles {
		h.Cancel()
	}
}
