// Package reconcile computes and applies certificate changes.
//
// Planning is pure: PlanVerify and PlanSpecify are functions of identifier
// sets only, and calling them twice with the same sets gives the same plan.
// Apply is the only function that touches the ledger, and it does so through
// the Ledger interface one certificate at a time, so an interrupted run
// leaves every written certificate complete.
//
// Verify certificates follow the live verdicts in both directions inside the
// tracked scope. Specify certificates are only ever added here; revoking one
// is a manual act.
package reconcile
