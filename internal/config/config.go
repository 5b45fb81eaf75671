// Package config loads and saves the per-project verilib configuration.
//
// The configuration is written once by the create phase and read by every
// later phase. Nothing is cached between invocations: each command calls Load
// and passes the resulting Config down explicitly.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/verilib/internal/fileutil"
)

// Dir is the project-relative directory holding all verilib state.
const Dir = ".verilib"

// FileName is the config file inside Dir.
const FileName = "config.json"

// DefaultStructureRoot is used when create is not given --root.
const DefaultStructureRoot = ".verilib/structure"

// StructureType selects the backend variant.
type StructureType string

const (
	CodeBackend  StructureType = "code-backend"
	ProofBackend StructureType = "proof-backend"
)

// StructureForm selects the physical structure store.
type StructureForm string

const (
	FormTable     StructureForm = "table"
	FormDocuments StructureForm = "documents"
)

// Config is the persisted project configuration.
type Config struct {
	Type StructureType `json:"structure-type" validate:"required,oneof=code-backend proof-backend"`
	Form StructureForm `json:"structure-form" validate:"required,oneof=table documents"`
	Root string        `json:"structure-root" validate:"required"`
	// Crate limits the code backend to atoms of one crate. Empty keeps every
	// atom the analysis reports.
	Crate string `json:"crate,omitempty" validate:"omitempty,excludesall=/"`
}

// ErrMissing is returned by Load when the project has no configuration.
var ErrMissing = errors.New("verilib config not found")

// validate is shared; validator caches struct metadata per instance.
var validate = validator.New()

// Legacy names written by earlier tooling.
var (
	legacyTypes = map[string]StructureType{
		"dalek-lite": CodeBackend,
		"blueprint":  ProofBackend,
	}
	legacyForms = map[string]StructureForm{
		"json":  FormTable,
		"files": FormDocuments,
	}
)

// New returns a Config for typ with the given form and root, filling in
// defaults for empty values.
func New(typ StructureType, form StructureForm, root string) Config {
	if form == "" {
		form = FormDocuments
	}
	if root == "" {
		root = DefaultStructureRoot
	}
	return Config{Type: typ, Form: form, Root: filepath.ToSlash(root)}
}

// Validate checks field values.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// Path returns the config file path for projectRoot.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, Dir, FileName)
}

// VerilibDir returns the state directory for projectRoot.
func VerilibDir(projectRoot string) string {
	return filepath.Join(projectRoot, Dir)
}

// StructureDir returns the absolute structure root for projectRoot.
func (c Config) StructureDir(projectRoot string) string {
	if filepath.IsAbs(c.Root) {
		return c.Root
	}
	return filepath.Join(projectRoot, filepath.FromSlash(c.Root))
}

// Load reads and validates the configuration of projectRoot. A missing file
// yields an error wrapping ErrMissing; a malformed or invalid one yields a
// *CorruptError.
func Load(projectRoot string) (Config, error) {
	path := Path(projectRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w at %s: run 'verilib create' first", ErrMissing, path)
		}
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, &CorruptError{Path: path, Err: err}
	}
	if t, ok := legacyTypes[string(cfg.Type)]; ok {
		cfg.Type = t
	}
	if f, ok := legacyForms[string(cfg.Form)]; ok {
		cfg.Form = f
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, &CorruptError{Path: path, Err: err}
	}
	return cfg, nil
}

// Save validates cfg and writes it to projectRoot.
func Save(projectRoot string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := fileutil.MarshalJSON(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if _, err := fileutil.WriteIfChanged(Path(projectRoot), data); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// CorruptError reports a config file that exists but cannot be used.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("config %s is unreadable: %v (re-run 'verilib create' to rewrite it)", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// IsCorrupt reports whether err is an unreadable config.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}

// IsMissing reports whether err means the project has not been created yet.
func IsMissing(err error) bool {
	return errors.Is(err, ErrMissing)
}
