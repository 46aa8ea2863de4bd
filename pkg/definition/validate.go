package definition

import (
	"fmt"

	"mercator-hq/conditional/pkg/runner"
)

// Validate checks the structure of doc: unique non-empty names, exactly
// one form per node, non-empty composites, non-negative delays and
// timeouts, known predicates with valid args and, when runners is not nil,
// known runner references. It returns a *ValidationError listing every
// problem, or nil.
func Validate(doc *Document, registry *Registry, runners *runner.Registry) error {
	v := &validator{registry: registry, runners: runners}

	seen := make(map[string]int, len(doc.Conditions))
	for i := range doc.Conditions {
		def := &doc.Conditions[i]
		path := fmt.Sprintf("conditions[%d]", i)

		switch first, dup := seen[def.Name]; {
		case def.Name == "":
			v.add(path+".name", "name is required")
		case dup:
			v.add(path+".name", fmt.Sprintf("duplicate name %q (first declared at conditions[%d])", def.Name, first))
		default:
			seen[def.Name] = i
		}

		v.node(path+".root", &def.Root)
	}

	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

type validator struct {
	registry *Registry
	runners  *runner.Registry
	problems []Problem
}

func (v *validator) add(path, message string) {
	v.problems = append(v.problems, Problem{Path: path, Message: message})
}

func (v *validator) node(path string, n *Node) {
	if n.Delay < 0 {
		v.add(path+".delay", "delay must not be negative")
	}
	if n.Timeout < 0 {
		v.add(path+".timeout", "timeout must not be negative")
	}
	if n.Runner != "" && v.runners != nil {
		if _, err := v.runners.Get(n.Runner); err != nil {
			v.add(path+".runner", fmt.Sprintf("unknown runner %q", n.Runner))
		}
	}

	switch n.kind() {
	case "all":
		v.children(path+".all", n.All)
	case "any":
		v.children(path+".any", n.Any)
	case "predicate":
		if _, err := v.registry.Create(n.Predicate, n.Args); err != nil {
			v.add(path+".predicate", err.Error())
		}
	default:
		v.add(path, "node must set exactly one of all, any or predicate")
	}
}

func (v *validator) children(path string, nodes []Node) {
	if len(nodes) == 0 {
		v.add(path, "composite must have at least one condition")
		return
	}
	for i := range nodes {
		v.node(fmt.Sprintf("%s[%d]", path, i), &nodes[i])
	}
}
