// Package history keeps a SQLite journal of reconciliation runs.
//
// Every specify and verify run that reaches the apply step is recorded with
// its certificate totals and the identifiers it created or deleted. The
// journal is informational: the certificate ledger on disk stays the source
// of truth, and a journal that cannot be written never fails a run.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s for locks
//   - foreign_keys=ON: Enforce run_changes.run_id
//
// Runs are listed newest first, ordered by started_at and then by id, so
// identical timestamps still list deterministically.
package history
