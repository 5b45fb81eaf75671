// Package harness runs reconciliation conformance scenarios.
//
// A scenario describes a structure store, an existing certificate ledger and
// the live verdicts a backend would report. The harness plans and applies one
// specify or verify run against a real ledger in a scratch directory, then
// checks assertions on the resulting ledger and on the trace of certificate
// mutations.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	phase: verify
//	module: edwards
//	entries:
//	  - id: edwards/add
//	    module: edwards
//	certs:
//	  verify: [edwards/add]
//	live: [edwards/double]
//	unknown: []
//	select: "1-2"
//	assertions:
//	  - type: ledger_equals
//	    category: verify
//	    ids: [edwards/double]
//	  - type: trace_contains
//	    action: delete
//	    category: verify
//	    id: edwards/add
//
// # Assertion Types
//
//   - ledger_equals: the category holds exactly the listed identifiers
//   - trace_contains: a create or delete of the identifier was applied
//   - trace_count: the number of applied mutations, optionally per action
//   - totals: certificate totals before and after the run
//   - flags: specified/verified flags written back to an entry
//
// # Deterministic Testing
//
// Certificates are stamped by testutil.DeterministicClock, and the trace is
// numbered from 1 in apply order, so golden snapshots are reproducible.
package harness
