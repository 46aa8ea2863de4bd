package definition

import "time"

// Document is a parsed definition file.
type Document struct {
	// State seeds the RunContext of every evaluation.
	State map[string]any `yaml:"state"`

	// Conditions are the named trees, in declaration order.
	Conditions []Definition `yaml:"conditions"`
}

// Definition is one named condition tree.
type Definition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Root        Node   `yaml:"root"`
}

// Node is a composite (All or Any) or a predicate leaf.
type Node struct {
	Alias   string        `yaml:"alias"`
	Async   bool          `yaml:"async"`
	Runner  string        `yaml:"runner"`
	Delay   time.Duration `yaml:"delay"`
	Timeout time.Duration `yaml:"timeout"`

	All []Node `yaml:"all"`
	Any []Node `yaml:"any"`

	Predicate string         `yaml:"predicate"`
	Args      map[string]any `yaml:"args"`
}

// kind names the node form, or "" when the form is ambiguous or missing.
func (n *Node) kind() string {
	set := 0
	kind := ""
	if n.All != nil {
		set++
		kind = "all"
	}
	if n.Any != nil {
		set++
		kind = "any"
	}
	if n.Predicate != "" {
		set++
		kind = "predicate"
	}
	if set != 1 {
		return ""
	}
	return kind
}
