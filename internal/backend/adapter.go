package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/roach88/verilib/internal/config"
	"github.com/roach88/verilib/internal/model"
)

// ErrModuleFilter is returned when a module filter is passed to a backend
// that has no notion of modules.
var ErrModuleFilter = errors.New("module filter is only supported by the code backend")

// Adapter turns tool output into entries and verdicts.
type Adapter interface {
	Type() config.StructureType

	// Discover lists the artifacts to track. Used by create.
	Discover(ctx context.Context, p Project) ([]model.Entry, error)

	// Atomize returns enriched versions of entries. Entries the tool no
	// longer knows are left out.
	Atomize(ctx context.Context, p Project, entries []model.Entry) ([]model.Entry, error)

	// SpecStatus reports which artifacts currently carry a specification.
	SpecStatus(ctx context.Context, p Project) (Verdicts, error)

	// VerifyStatus reports which artifacts currently verify, optionally
	// restricted to one module.
	VerifyStatus(ctx context.Context, p Project, module string) (Verdicts, error)
}

// Project locates the checkout a phase runs against.
type Project struct {
	Root string
}

// VerilibDir returns the project's state directory.
func (p Project) VerilibDir() string {
	return config.VerilibDir(p.Root)
}

func (p Project) state(name string) string {
	return filepath.Join(p.VerilibDir(), name)
}

// Detail is display information about one verdict.
type Detail struct {
	DisplayName string   `json:"display_name"`
	Path        string   `json:"path,omitempty"`
	Line        int      `json:"line,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}

// Dropped records a tool record that could not be interpreted.
type Dropped struct {
	Identifier model.Identifier `json:"identifier"`
	Reason     string           `json:"reason"`
}

// Verdicts is one status report from a tool.
type Verdicts struct {
	// Positive holds identifiers reported true.
	Positive model.Set
	// Known holds every identifier with a readable verdict, true or false.
	Known model.Set
	// Unknown holds identifiers whose record was malformed.
	Unknown model.Set
	Details map[model.Identifier]Detail
	Dropped []Dropped
}

func newVerdicts() Verdicts {
	return Verdicts{
		Positive: model.NewSet(),
		Known:    model.NewSet(),
		Unknown:  model.NewSet(),
		Details:  make(map[model.Identifier]Detail),
	}
}

func (v *Verdicts) record(id model.Identifier, positive bool, d Detail) {
	v.Known.Add(id)
	if positive {
		v.Positive.Add(id)
	}
	v.Details[id] = d
}

func (v *Verdicts) drop(id model.Identifier, reason string) {
	v.Unknown.Add(id)
	v.Dropped = append(v.Dropped, Dropped{Identifier: id, Reason: reason})
}

// Tools names the executables the adapters invoke.
type Tools struct {
	ProbeVerus    string
	UV            string
	LeanBlueprint string
}

// DefaultTools resolves every tool from PATH.
func DefaultTools() Tools {
	return Tools{
		ProbeVerus:    "probe-verus",
		UV:            "uv",
		LeanBlueprint: "leanblueprint",
	}
}

// Options configures New.
type Options struct {
	Runner Runner
	Tools  Tools
	Logger *slog.Logger
	// Crate restricts code backend atoms to that crate's identifiers.
	Crate string
}

// New returns the adapter for typ.
func New(typ config.StructureType, opts Options) (Adapter, error) {
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Tools == (Tools{}) {
		opts.Tools = DefaultTools()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	schema, err := loadSchema()
	if err != nil {
		return nil, err
	}

	switch typ {
	case config.CodeBackend:
		return &Code{runner: opts.Runner, tools: opts.Tools, logger: opts.Logger, schema: schema, crate: opts.Crate}, nil
	case config.ProofBackend:
		return &Proof{runner: opts.Runner, tools: opts.Tools, logger: opts.Logger, schema: schema}, nil
	default:
		return nil, fmt.Errorf("unknown structure type %q", typ)
	}
}
