package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/verilib/internal/backend"
	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/config"
	"github.com/roach88/verilib/internal/history"
	"github.com/roach88/verilib/internal/reconcile"
	"github.com/roach88/verilib/internal/structure"
)

// session is the per-invocation state shared by the project commands.
type session struct {
	opts      *RootOptions
	root      string
	runID     string
	formatter *OutputFormatter
	logger    *slog.Logger

	cfg     config.Config
	store   structure.Store
	adapter backend.Adapter
	ledger  *certs.Ledger
}

// newSession sets up output and logging for cmd. The project is not touched
// until load is called.
func newSession(opts *RootOptions, cmd *cobra.Command, args []string) *session {
	root := "."
	if len(args) > 0 && args[0] != "" {
		root = args[0]
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	ids := opts.RunIDs
	if ids == nil {
		ids = history.UUIDv7Generator{}
	}
	runID := ids.Generate()

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})

	return &session{
		opts:  opts,
		root:  root,
		runID: runID,
		formatter: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
		logger: slog.New(handler).With("run_id", runID, "command", cmd.Name()),
	}
}

// load reads the project config and opens the store, adapter and ledger.
func (s *session) load() error {
	cfg, err := config.Load(s.root)
	if err != nil {
		return err
	}
	return s.open(cfg)
}

func (s *session) open(cfg config.Config) error {
	st, err := structure.Open(s.root, cfg, s.logger)
	if err != nil {
		return err
	}
	adapter, err := backend.New(cfg.Type, backend.Options{
		Runner: s.opts.Runner,
		Tools:  s.opts.Tools,
		Logger: s.logger,
		Crate:  cfg.Crate,
	})
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.store = st
	s.adapter = adapter
	s.ledger = certs.Open(config.VerilibDir(s.root))
	s.logger.Debug("project loaded",
		"root", s.root,
		"structure_type", cfg.Type,
		"structure_form", cfg.Form,
		"location", st.Location(),
		"certificate_names", s.ledger.Names())
	return nil
}

func (s *session) project() backend.Project {
	return backend.Project{Root: s.root}
}

func (s *session) now() time.Time {
	if s.opts.Clock != nil {
		return s.opts.Clock()
	}
	return time.Now().UTC()
}

// record appends run to the journal. The journal is informational, so a
// failure is logged and never fails the phase.
func (s *session) record(ctx context.Context, run history.Run) {
	run.ID = s.runID
	hs, err := history.Open(history.Path(s.root))
	if err != nil {
		s.logger.Warn("run journal unavailable", "error", err)
		return
	}
	defer hs.Close()
	if err := hs.Record(ctx, run); err != nil {
		s.logger.Warn("failed to record run", "error", err)
		return
	}
	s.logger.Debug("run recorded", "phase", run.Phase)
}

// recordPartial records a run that failed after committing some changes.
func (s *session) recordPartial(ctx context.Context, run history.Run) {
	if len(run.Created) == 0 && len(run.Deleted) == 0 {
		return
	}
	s.record(context.WithoutCancel(ctx), run)
}

func journalRun(phase, module string, started time.Time, res reconcile.Result) history.Run {
	return history.Run{
		Phase:     phase,
		StartedAt: started,
		Module:    module,
		Before:    res.Before,
		After:     res.After,
		Created:   res.Created,
		Deleted:   res.Deleted,
	}
}

// fail reports err through the formatter and returns the matching ExitError.
func (s *session) fail(err error) error {
	s.logger.Debug("command failed", "error", err)
	return s.formatter.Fail(err, nil)
}
