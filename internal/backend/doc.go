// Package backend adapts external analysis tools to the normalized entry
// model.
//
// Two variants exist and New is the only place that chooses between them:
//
//   - Code drives probe-verus over a Verus crate. Entries are keyed by source
//     location until atomize resolves each location to a probe identifier.
//   - Proof drives leanblueprint and reads its dependency-graph page. Entries
//     are keyed by graph node from the start.
//
// Create and atomize are strict: a failed tool run or a malformed record
// aborts the phase. Specify and verify are lenient per record: a malformed
// record lands in Verdicts.Unknown and the run continues. A failed tool run
// or an unreadable output file is fatal in every phase.
package backend
