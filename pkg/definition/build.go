package definition

import (
	"fmt"
	"maps"

	"mercator-hq/conditional/pkg/condition"
	"mercator-hq/conditional/pkg/runner"
)

// Set is the built form of a document.
type Set struct {
	conditions   map[string]condition.Condition
	descriptions map[string]string
	names        []string
	state        map[string]any
}

// Build validates doc and turns every definition into a condition tree.
// Leaves without an alias are named after their predicate. Runner names
// resolve through runners; a nil runners rejects any runner reference.
func Build(doc *Document, registry *Registry, runners *runner.Registry) (*Set, error) {
	if runners == nil {
		runners = runner.NewRegistry()
	}
	if err := Validate(doc, registry, runners); err != nil {
		return nil, err
	}

	set := &Set{
		conditions:   make(map[string]condition.Condition, len(doc.Conditions)),
		descriptions: make(map[string]string, len(doc.Conditions)),
		state:        maps.Clone(doc.State),
	}

	b := &builder{registry: registry, runners: runners}
	for _, def := range doc.Conditions {
		c, err := b.node(&def.Root)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", def.Name, err)
		}
		set.conditions[def.Name] = c
		set.descriptions[def.Name] = def.Description
		set.names = append(set.names, def.Name)
	}
	return set, nil
}

// Get returns the tree declared under name.
func (s *Set) Get(name string) (condition.Condition, error) {
	c, ok := s.conditions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDefinitionNotFound, name)
	}
	return c, nil
}

// Description returns the description declared for name.
func (s *Set) Description(name string) string {
	return s.descriptions[name]
}

// Names returns the definition names in declaration order.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// State returns a copy of the seed state.
func (s *Set) State() map[string]any {
	out := maps.Clone(s.state)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

type builder struct {
	registry *Registry
	runners  *runner.Registry
}

func (b *builder) node(n *Node) (condition.Condition, error) {
	opts, err := b.options(n)
	if err != nil {
		return nil, err
	}

	switch n.kind() {
	case "all":
		return b.composite(condition.AND, n.All, opts)
	case "any":
		return b.composite(condition.OR, n.Any, opts)
	default:
		fn, err := b.registry.Create(n.Predicate, n.Args)
		if err != nil {
			return nil, err
		}
		if n.Alias == "" {
			opts = append(opts, condition.WithAlias(n.Predicate))
		}
		return condition.NewLeaf(fn, opts...)
	}
}

func (b *builder) composite(op condition.Operator, nodes []Node, opts []condition.Option) (condition.Condition, error) {
	children := make([]condition.Condition, 0, len(nodes))
	for i := range nodes {
		child, err := b.node(&nodes[i])
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return condition.NewComposite(op, children, opts...)
}

func (b *builder) options(n *Node) ([]condition.Option, error) {
	var opts []condition.Option
	if n.Alias != "" {
		opts = append(opts, condition.WithAlias(n.Alias))
	}
	if n.Async {
		opts = append(opts, condition.WithAsync())
	}
	if n.Runner != "" {
		r, err := b.runners.Get(n.Runner)
		if err != nil {
			return nil, err
		}
		opts = append(opts, condition.WithRunner(r))
	}
	if n.Delay > 0 {
		opts = append(opts, condition.WithDelay(n.Delay))
	}
	if n.Timeout > 0 {
		opts = append(opts, condition.WithTimeout(n.Timeout))
	}
	return opts, nil
}
