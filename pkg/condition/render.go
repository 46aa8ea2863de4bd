package condition

import "strings"

// String returns the alias, or the leaf's built-in name.
func (l *Leaf) String() string {
	if l.attrs.Alias != "" {
		return l.attrs.Alias
	}
	return l.name
}

// String returns the alias, or the children joined by the operator, for
// example "(a && b)". A single child renders as the child.
func (c *Composite) String() string {
	if c.attrs.Alias != "" {
		return c.attrs.Alias
	}
	if len(c.conditions) == 1 {
		return render(c.conditions[0])
	}

	parts := make([]string, len(c.conditions))
	for i, child := range c.conditions {
		parts[i] = render(child)
	}
	return "(" + strings.Join(parts, " "+c.op.symbol()+" ") + ")"
}

func render(c Condition) string {
	if isNil(c) {
		return "<nil>"
	}
	return c.String()
}
