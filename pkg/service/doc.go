// Package service evaluates named condition definitions.
//
// A Service owns the built definition set, the named worker pools and the
// run journal. Each Evaluate call gets a fresh RunContext seeded with the
// definition state merged with the request state, applies the dispatch
// mode, waits for cancelled branches to settle, journals the run and
// records run metrics.
//
// Definitions are swapped atomically by Reload, so evaluations already in
// progress finish against the set they started with.
package service
