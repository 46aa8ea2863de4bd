// Package journal records evaluation runs.
//
// A Run captures one top-level evaluation: the definition evaluated, the
// final result and every started and finished event logged to its
// RunContext. Runs are kept in a Store:
//
//   - MemoryStore: in-process map, used by tests and the "memory" driver
//   - SQLiteStore: database/sql over mattn/go-sqlite3 ("sqlite3") or the
//     pure Go modernc.org/sqlite ("sqlite")
//
// # Retention
//
// A Pruner deletes runs older than the configured number of days and caps
// the total number of stored runs. Its Scheduler runs pruning on a standard
// cron schedule:
//
//	pruner := journal.NewPruner(store, &config.RetentionConfig{
//	    Days:          30,
//	    PruneSchedule: "0 3 * * *",
//	})
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
package journal
