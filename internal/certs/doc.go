// Package certs implements the certificate ledger: one small JSON file per
// (category, identifier) whose existence is the attestation.
//
// Layout:
//
//	.verilib/certs/specify/<escaped identifier>.json
//	.verilib/certs/verify/<escaped identifier>.json
//
// Each file holds {"timestamp": "<RFC 3339>"}. Certificates are created with
// create-or-fail semantics and removed outright; none is edited in place.
//
// Filenames escape every byte outside [A-Za-z0-9] as %XX, which is reversible
// and keeps path separators out of the ledger directory. The only remaining
// way for two identifiers to share a file is a case-insensitive filesystem.
// Open detects whether the ledger's filesystem folds case; when it does, names
// are compared under Unicode case folding and a clash is reported as a
// CollisionError instead of silently merging two artifacts.
package certs
