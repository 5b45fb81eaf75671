package structure

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/config"
	"github.com/roach88/verilib/internal/model"
)

// TableFile is the table-form store inside the verilib directory.
const TableFile = "stubs.json"

// Store loads and saves the full set of tracked entries.
type Store interface {
	// Load returns every persisted entry. A store that does not exist yet
	// loads as empty.
	Load() ([]model.Entry, error)

	// Save replaces the persisted set with entries. Entries absent from the
	// slice are removed.
	Save(entries []model.Entry) error

	// Location is the file or directory backing the store.
	Location() string
}

// Open returns the store selected by cfg.
func Open(projectRoot string, cfg config.Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Form {
	case config.FormTable:
		return NewTable(filepath.Join(config.VerilibDir(projectRoot), TableFile), logger), nil
	case config.FormDocuments:
		return NewDocuments(cfg.StructureDir(projectRoot), logger), nil
	default:
		return nil, fmt.Errorf("unknown structure form %q", cfg.Form)
	}
}

// CorruptError reports a store file that cannot be parsed. The file is never
// modified by the failing phase.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("structure store %s is unreadable: %v (left untouched; regenerate it with 'verilib create')",
		e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// IsCorrupt reports whether err is a StoreCorruption error.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}

// DuplicateError reports one identifier claimed by two entries.
type DuplicateError struct {
	Identifier model.Identifier
	First      string
	Second     string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("identifier collision: %q is claimed by both %s and %s", e.Identifier, e.First, e.Second)
}

// IsDuplicate reports whether err is a DuplicateError.
func IsDuplicate(err error) bool {
	var de *DuplicateError
	return errors.As(err, &de)
}

// Validate checks the store invariants: identifiers are unique, and no two
// identifiers share a certificate filename under names.
func Validate(entries []model.Entry, names certs.Names) error {
	seen := make(map[model.Identifier]string, len(entries))
	ids := make([]model.Identifier, 0, len(entries))
	for _, e := range entries {
		if e.Identifier == "" {
			continue
		}
		where := describe(e)
		if prev, ok := seen[e.Identifier]; ok {
			return &DuplicateError{Identifier: e.Identifier, First: prev, Second: where}
		}
		seen[e.Identifier] = where
		ids = append(ids, e.Identifier)
	}
	return certs.CheckCollisions(ids, names)
}

func describe(e model.Entry) string {
	switch {
	case e.Path != "":
		return e.Path
	case e.Origin != nil:
		return e.Origin.Key()
	default:
		return string(e.Identifier)
	}
}
