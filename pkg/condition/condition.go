package condition

import "context"

// Func is a leaf's evaluation function. It should return promptly once ctx
// is done.
type Func func(ctx context.Context, rc *RunContext) (bool, error)

// Condition is a node of a condition tree. It is implemented by *Leaf and
// *Composite only.
type Condition interface {
	// Attributes returns the node's invocation attributes.
	Attributes() Attributes

	// String renders the node for display.
	String() string

	// body runs the node's own work after delay and timeout are applied.
	body(ctx context.Context, rc *RunContext) (bool, error)

	// validate reports construction problems detected at evaluation time.
	validate() error

	// operator returns "AND" or "OR" for composites and "" for leaves.
	operator() string

	// withAttributes returns a copy carrying attrs.
	withAttributes(attrs Attributes) Condition
}

func isNil(c Condition) bool {
	switch v := c.(type) {
	case nil:
		return true
	case *Leaf:
		return v == nil
	case *Composite:
		return v == nil
	}
	return false
}
