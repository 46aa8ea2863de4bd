// Conditional evaluates composed boolean conditions.
//
// Definitions are YAML documents of AND/OR trees over predicates. Nodes can
// run asynchronously on named worker pools, with per-node delays and
// timeouts, and evaluation short-circuits by cancelling branches that can
// no longer change the result.
//
// Usage:
//
//	# Evaluate a definition once
//	conditional eval can-deploy --state env=prod
//
//	# Check a definitions file
//	conditional validate conditions.yaml
//
//	# Re-evaluate whenever the file changes
//	conditional watch can-deploy
//
//	# Serve the HTTP API with metrics
//	conditional serve --config config.yaml
//
//	# Inspect journaled runs
//	conditional history --failed
package main

func main() {
	Execute()
}
