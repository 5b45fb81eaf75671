// Package report renders phase summaries as styled text.
//
// Styles are bound to the destination writer, so colors appear on a terminal
// and disappear when output is piped or captured.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/history"
	"github.com/roach88/verilib/internal/model"
	"github.com/roach88/verilib/internal/reconcile"
)

// Palette shared by every summary.
var (
	ColorAdded   = lipgloss.Color("#2CD7C7")
	ColorRemoved = lipgloss.Color("#E74C3C")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorMuted   = lipgloss.Color("#2C4A54")
)

// Renderer writes summaries to one writer.
type Renderer struct {
	w       io.Writer
	title   lipgloss.Style
	muted   lipgloss.Style
	added   lipgloss.Style
	removed lipgloss.Style
	warning lipgloss.Style
}

// New returns a renderer for w.
func New(w io.Writer) *Renderer {
	r := lipgloss.NewRenderer(w)
	return &Renderer{
		w:       w,
		title:   r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(ColorMuted),
		added:   r.NewStyle().Foreground(ColorAdded),
		removed: r.NewStyle().Foreground(ColorRemoved),
		warning: r.NewStyle().Foreground(ColorWarning),
	}
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

// StoreSummary describes a create or atomize run.
type StoreSummary struct {
	Phase     string   `json:"phase"`
	Location  string   `json:"location"`
	Entries   int      `json:"entries"`
	Added     int      `json:"added"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Pruned    []string `json:"pruned"`
	Missing   []string `json:"missing"`
}

// Store renders a create or atomize summary.
func (r *Renderer) Store(s StoreSummary) {
	r.printf("%s %d entries in %s\n", r.title.Render(s.Phase+":"), s.Entries, s.Location)
	r.printf("  added %d, updated %d, unchanged %d\n", s.Added, s.Updated, s.Unchanged)
	if len(s.Pruned) > 0 {
		r.printf("Pruned hidden entries:\n")
		for _, k := range s.Pruned {
			r.printf("  %s %s\n", r.removed.Render("-"), k)
		}
	}
	if len(s.Missing) > 0 {
		r.printf("%s\n", r.warning.Render("No longer reported by the backend:"))
		for _, k := range s.Missing {
			r.printf("  %s %s\n", r.warning.Render("!"), k)
		}
	}
}

// Totals renders the certificate delta line.
func (r *Renderer) Totals(res reconcile.Result) {
	r.printf("Total certs: %d → %d (%s, %s)\n",
		res.Before, res.After,
		r.added.Render(fmt.Sprintf("+%d", len(res.Created))),
		r.removed.Render(fmt.Sprintf("-%d", len(res.Deleted))))
}

func (r *Renderer) changes(res reconcile.Result) {
	if len(res.Created) > 0 {
		r.printf("Created:\n")
		for _, id := range res.Created {
			r.printf("  %s %s\n", r.added.Render("+"), id)
		}
	}
	if len(res.Deleted) > 0 {
		r.printf("Deleted:\n")
		for _, id := range res.Deleted {
			r.printf("  %s %s\n", r.removed.Render("-"), id)
		}
	}
}

// VerifySummary describes a verify run.
type VerifySummary struct {
	Result  reconcile.Result   `json:"result"`
	Module  string             `json:"module,omitempty"`
	Unknown []model.Identifier `json:"unknown"`
}

// Verify renders the verify summary.
func (r *Renderer) Verify(s VerifySummary) {
	if s.Module != "" {
		r.printf("%s module %s\n", r.title.Render("verify:"), s.Module)
	} else {
		r.printf("%s\n", r.title.Render("verify:"))
	}
	r.Totals(s.Result)
	r.changes(s.Result)
	if len(s.Unknown) > 0 {
		r.printf("%s\n", r.warning.Render("Unreadable verdicts, certificates left as they were:"))
		for _, id := range s.Unknown {
			r.printf("  %s %s\n", r.warning.Render("?"), id)
		}
	}
}

// SpecifySummary describes a specify run.
type SpecifySummary struct {
	Result     reconcile.Result `json:"result"`
	Candidates int              `json:"candidates"`
}

// Specify renders the specify summary.
func (r *Renderer) Specify(s SpecifySummary) {
	r.printf("%s\n", r.title.Render("specify:"))
	switch {
	case s.Candidates == 0:
		r.printf("No newly specified artifacts to certify.\n")
		return
	case len(s.Result.Created) == 0:
		r.printf("No artifacts selected.\n")
	default:
		r.printf("Certified %d of %d candidates.\n", len(s.Result.Created), s.Candidates)
	}
	r.Totals(s.Result)
	r.changes(s.Result)
}

// Candidate is one numbered line of the specify prompt.
type Candidate struct {
	Index       int              `json:"index"`
	DisplayName string           `json:"display_name"`
	Location    string           `json:"location,omitempty"`
	Identifier  model.Identifier `json:"identifier"`
}

// Candidates renders the numbered specify candidate list.
func (r *Renderer) Candidates(list []Candidate) {
	r.printf("%s\n", r.title.Render(fmt.Sprintf("%d specified artifacts without a certificate:", len(list))))
	width := len(fmt.Sprint(len(list)))
	for _, c := range list {
		loc := ""
		if c.Location != "" {
			loc = " (" + c.Location + ")"
		}
		r.printf("  %*d. %s%s %s\n", width, c.Index, c.DisplayName, loc, r.muted.Render(string(c.Identifier)))
	}
}

// StatusSummary describes the status command.
type StatusSummary struct {
	Type     string                                `json:"structure_type"`
	Form     string                                `json:"structure_form"`
	Location string                                `json:"location"`
	Entries  int                                   `json:"entries"`
	Tracked  int                                   `json:"tracked"`
	Hidden   int                                   `json:"hidden"`
	Missing  int                                   `json:"missing"`
	Pending  int                                   `json:"pending"`
	Certs    map[certs.Category]int                `json:"certs"`
	Orphans  map[certs.Category][]model.Identifier `json:"orphans"`
}

// Status renders the status summary.
func (r *Renderer) Status(s StatusSummary) {
	r.printf("%s %s, %s form, %s\n", r.title.Render("status:"), s.Type, s.Form, s.Location)
	r.printf("  entries %d: tracked %d, hidden %d, missing %d, not yet atomized %d\n",
		s.Entries, s.Tracked, s.Hidden, s.Missing, s.Pending)
	for _, cat := range []certs.Category{certs.Specify, certs.Verify} {
		r.printf("  %s certs: %d\n", cat, s.Certs[cat])
	}
	for _, cat := range []certs.Category{certs.Specify, certs.Verify} {
		orphans := s.Orphans[cat]
		if len(orphans) == 0 {
			continue
		}
		r.printf("%s\n", r.warning.Render(fmt.Sprintf("Orphan %s certs (not in the structure):", cat)))
		for _, id := range orphans {
			r.printf("  %s %s\n", r.warning.Render("!"), id)
		}
	}
}

// History renders journal runs, newest first.
func (r *Renderer) History(runs []history.Run) {
	if len(runs) == 0 {
		r.printf("No recorded runs.\n")
		return
	}
	for _, run := range runs {
		scope := ""
		if run.Module != "" {
			scope = " [" + run.Module + "]"
		}
		pad := strings.Repeat(" ", max(0, len("specify")-len(run.Phase)))
		r.printf("%s %s%s%s %d → %d (%s, %s) %s\n",
			run.StartedAt.UTC().Format(time.RFC3339),
			r.title.Render(run.Phase), pad,
			scope,
			run.Before, run.After,
			r.added.Render(fmt.Sprintf("+%d", len(run.Created))),
			r.removed.Render(fmt.Sprintf("-%d", len(run.Deleted))),
			r.muted.Render(run.ID))
	}
}

// Location formats a path and line for display.
func Location(path string, line int) string {
	switch {
	case path == "":
		return ""
	case line > 0:
		return fmt.Sprintf("%s:%d", path, line)
	default:
		return path
	}
}

// Line prints msg followed by a single newline.
func (r *Renderer) Line(msg string) {
	r.printf("%s\n", strings.TrimRight(msg, "\n"))
}
