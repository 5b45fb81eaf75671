package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/verilib/internal/config"
	"github.com/roach88/verilib/internal/report"
	"github.com/roach88/verilib/internal/structure"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Type string
	Form  string
	Root  string
	Crate string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create [project-root]",
		Short: "Initialize the structure of a project",
		Long: `Write .verilib/config.json and the initial structure of a project.

The code backend seeds the structure from functions_to_track.csv through the
project's analysis script. The proof backend renders the blueprint and tracks
every node of its dependency graph. Running create again keeps what the
existing structure already knows. The config is written last, so a failed
create leaves no project behind.

Example:
  verilib create --type code-backend
  verilib create --type code-backend --crate curve25519-dalek
  verilib create ./lean-project --type proof-backend --form table`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "structure type (code-backend|proof-backend)")
	cmd.Flags().StringVar(&opts.Form, "form", string(config.FormDocuments), "structure form (table|documents)")
	cmd.Flags().StringVar(&opts.Root, "root", config.DefaultStructureRoot, "structure root for the documents form")
	cmd.Flags().StringVar(&opts.Crate, "crate", "", "only track atoms of this crate (code-backend)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runCreate(opts *CreateOptions, args []string, cmd *cobra.Command) error {
	s := newSession(opts.RootOptions, cmd, args)
	ctx := cmd.Context()

	cfg := config.New(config.StructureType(opts.Type), config.StructureForm(opts.Form), opts.Root)
	cfg.Crate = opts.Crate
	if err := cfg.Validate(); err != nil {
		return s.fail(err)
	}
	if cfg.Crate != "" && cfg.Type != config.CodeBackend {
		return s.fail(newUsageError("--crate applies to %s only", config.CodeBackend))
	}

	// A first create that fails removes the state directory it started.
	stateDir := config.VerilibDir(s.root)
	_, statErr := os.Stat(stateDir)
	fresh := os.IsNotExist(statErr)
	fail := func(err error) error {
		if fresh {
			if rmErr := os.RemoveAll(stateDir); rmErr != nil {
				s.logger.Warn("could not remove state directory", "path", stateDir, "error", rmErr)
			}
		}
		return s.fail(err)
	}
	if err := s.open(cfg); err != nil {
		return fail(err)
	}

	s.logger.Info("discovering artifacts", "structure_type", cfg.Type)
	discovered, err := s.adapter.Discover(ctx, s.project())
	if err != nil {
		return fail(err)
	}

	existing, err := s.store.Load()
	if err != nil {
		if !structure.IsCorrupt(err) {
			return fail(err)
		}
		s.logger.Warn("existing structure is unreadable, starting fresh", "error", err)
		existing = nil
	}

	merged := structure.Merge(existing, discovered)
	if err := s.store.Save(merged.Entries); err != nil {
		return fail(err)
	}
	if err := config.Save(s.root, cfg); err != nil {
		return fail(err)
	}

	summary := storeSummary("create", s.store.Location(), merged)
	return s.formatter.Result(summary, s.runID, func() {
		report.New(s.formatter.Writer).Store(summary)
	})
}

func storeSummary(phase, location string, m structure.MergeResult) report.StoreSummary {
	s := report.StoreSummary{
		Phase:     phase,
		Location:  location,
		Entries:   len(m.Entries),
		Added:     m.Added,
		Updated:   m.Updated,
		Unchanged: m.Unchanged,
		Pruned:    m.Pruned,
		Missing:   m.Missing,
	}
	if s.Pruned == nil {
		s.Pruned = []string{}
	}
	if s.Missing == nil {
		s.Missing = []string{}
	}
	return s
}
