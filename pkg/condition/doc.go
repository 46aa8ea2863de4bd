// Package condition composes boolean conditions into AND/OR trees and
// evaluates them against a run-scoped context.
//
// # Conditions
//
// A condition is either a [Leaf], wrapping a user function, or a
// [Composite], combining child conditions under [And] or [Or]. Both carry
// [Attributes] that control how a single invocation runs:
//
//   - Delay waits before the node starts its work. The wait ends early when
//     the invocation is cancelled.
//   - Timeout bounds the node's own work. An expired timeout fails the node
//     with a *TimeoutError and cancels the work's context.
//   - Async dispatches the node through a runner.TaskRunner instead of
//     running it on the caller's goroutine. Nodes without a runner use the
//     run's default runner.
//
// Conditions are immutable. With, Sequential and Parallel return new trees.
//
// # Evaluation
//
// A composite dispatches its children in declared order. Synchronous
// children resolve before the next child is dispatched, so a determining
// value (false for AND, true for OR) or a failure stops dispatch at once.
// Asynchronous children race; the first determining value or failure wins
// and every child still pending is cancelled. When nothing determines the
// result early, the children's values are folded in declared order.
//
// Failures are wrapped once in an *EvaluationError at the node where they
// originated. Cancellation is not a failure: a cancelled child contributes
// no value.
//
// # Run context
//
// Every top-level [Evaluate] call uses one [RunContext]. It holds shared
// state for the nodes of that run and an append-only log with exactly one
// started and one finished entry per invocation.
//
// Example:
//
//	rc := condition.NewRunContext(condition.WithState(map[string]any{"user": "linda"}))
//	isAdmin := condition.Of(func(ctx context.Context, rc *condition.RunContext) (bool, error) {
//		return lookupRole(ctx, rc) == "admin", nil
//	}, condition.WithAlias("isAdmin"), condition.WithAsync())
//	ok, err := condition.Evaluate(ctx, condition.And(isAdmin, condition.True()), rc)
package condition
