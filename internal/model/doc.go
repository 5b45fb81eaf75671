// Package model defines the normalized shape of a tracked artifact.
//
// Every backend produces model.Entry values and every store persists them.
// model imports nothing internal, so the backend, structure, certs and
// reconcile packages can all depend on it without cycles.
//
// An Entry moves through the lifecycle discovered → identified → specified →
// verified. Flags are tri-state: a nil pointer means the phase that owns the
// flag has not reported on the entry yet.
package model
