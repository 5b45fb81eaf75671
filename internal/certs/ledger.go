package certs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/verilib/internal/fileutil"
	"github.com/roach88/verilib/internal/model"
)

// Category separates specification attestations from verification ones.
type Category string

const (
	Specify Category = "specify"
	Verify  Category = "verify"
)

// Certificate is the on-disk content of a certificate file.
type Certificate struct {
	Timestamp time.Time `json:"timestamp"`
}

// Ledger is the certificate store rooted at <verilib dir>/certs.
type Ledger struct {
	dir   string
	names Names
}

// Open returns the ledger under verilibDir. Nothing is created until the
// first certificate is written.
func Open(verilibDir string) *Ledger {
	dir := filepath.Join(verilibDir, "certs")
	return &Ledger{dir: dir, names: DetectNames(dir)}
}

// Names returns the filename comparison rule of the ledger's filesystem.
func (l *Ledger) Names() Names {
	return l.names
}

// CheckCollisions reports identifiers that would share a certificate file in
// this ledger.
func (l *Ledger) CheckCollisions(ids []model.Identifier) error {
	return CheckCollisions(ids, l.names)
}

// Dir returns the directory holding certificates of cat.
func (l *Ledger) Dir(cat Category) string {
	return filepath.Join(l.dir, string(cat))
}

// Path returns the certificate path for (cat, id).
func (l *Ledger) Path(cat Category, id model.Identifier) string {
	return filepath.Join(l.Dir(cat), Filename(id))
}

// List returns every identifier holding a certificate in cat. A missing
// category directory is an empty ledger.
func (l *Ledger) List(cat Category) (model.Set, error) {
	dir := l.Dir(cat)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewSet(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	out := make(model.Set, len(entries))
	ids := make([]model.Identifier, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, fileutil.TempPrefix) || !strings.HasSuffix(name, Extension) {
			continue
		}
		id, err := Decode(strings.TrimSuffix(name, Extension))
		if err != nil {
			return nil, &CorruptError{Path: filepath.Join(dir, name), Err: err}
		}
		out.Add(id)
		ids = append(ids, id)
	}
	if err := l.CheckCollisions(ids); err != nil {
		return nil, err
	}
	return out, nil
}

// Exists reports whether (cat, id) has a certificate.
func (l *Ledger) Exists(cat Category, id model.Identifier) (bool, error) {
	_, err := os.Stat(l.Path(cat, id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Read returns the certificate stored for (cat, id).
func (l *Ledger) Read(cat Category, id model.Identifier) (Certificate, error) {
	path := l.Path(cat, id)
	data, err := os.ReadFile(path)
	if err != nil {
		return Certificate{}, err
	}
	var c Certificate
	if err := json.Unmarshal(data, &c); err != nil {
		return Certificate{}, &CorruptError{Path: path, Err: err}
	}
	return c, nil
}

// Create writes the certificate for (cat, id) stamped with ts. It fails with
// ErrExists when one is already present. The content is fully written and
// synced to a temp file before it is linked into place, so a certificate
// file is never observed half-written.
func (l *Ledger) Create(cat Category, id model.Identifier, ts time.Time) error {
	dir := l.Dir(cat)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	data, err := fileutil.MarshalJSON(Certificate{Timestamp: ts.UTC()})
	if err != nil {
		return fmt.Errorf("encoding certificate: %w", err)
	}

	tmp, err := os.CreateTemp(dir, fileutil.TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing certificate: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing certificate: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing certificate: %w", err)
	}

	final := l.Path(cat, id)
	if err := os.Link(tmpPath, final); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s %s: %w", cat, id, ErrExists)
		}
		return fmt.Errorf("committing certificate %s: %w", final, err)
	}
	return nil
}

// Delete removes the certificate for (cat, id). Removing an absent
// certificate is not an error.
func (l *Ledger) Delete(cat Category, id model.Identifier) error {
	err := os.Remove(l.Path(cat, id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s certificate for %s: %w", cat, id, err)
	}
	return nil
}
