// Package runner provides the task-execution capability used by asynchronous
// conditions.
//
// A TaskRunner accepts a zero-argument computation and returns a Handle that
// can be awaited or cancelled. Two implementations are provided:
//
//   - GoRunner starts one goroutine per task. Default returns a shared
//     GoRunner and is used whenever an asynchronous condition does not name
//     its own runner.
//   - Pool runs tasks on a fixed number of workers fed by a FIFO queue. A
//     Pool with one worker behaves like a single-threaded executor: tasks
//     submitted to it run one after another.
//
// # Cancellation
//
// Every submitted task receives a context derived from the submission
// context. Handle.Cancel resolves the handle with ErrCancelled and cancels
// that context; whatever the task returns afterwards is discarded. Cancellation
// is cooperative: a task that ignores its context keeps running until it
// returns, but its result is never observed.
//
// A Pool skips queued tasks whose handle was cancelled before a worker picked
// them up, so they never start.
//
// # Nesting
//
// A task running on a Pool that submits more work to the same Pool and waits
// for it can starve the pool when every worker is blocked waiting. Use the
// default runner (or a second pool) for nested asynchronous trees.
package runner
