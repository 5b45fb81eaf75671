package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/roach88/verilib/internal/report"
	"github.com/roach88/verilib/internal/selection"
)

const promptText = "Select artifacts to certify (e.g. 1,3-5, all, none): "

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// promptSelection prints the numbered candidates to out and reads a selection
// from in. On a terminal an invalid answer is reported and asked again;
// otherwise it is returned as a *selection.ParseError. End of input selects
// nothing.
func promptSelection(in io.Reader, out io.Writer, interactive bool, list []report.Candidate) (selection.Selection, error) {
	report.New(out).Candidates(list)

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, promptText)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return selection.Selection{}, fmt.Errorf("reading selection: %w", err)
		}
		eof := errors.Is(err, io.EOF)
		if eof && strings.TrimSpace(line) == "" {
			fmt.Fprintln(out)
			return selection.Parse("", len(list))
		}

		sel, perr := selection.Parse(line, len(list))
		if perr == nil {
			return sel, nil
		}
		if !interactive || eof {
			return selection.Selection{}, perr
		}
		fmt.Fprintf(out, "%s\n", perr)
	}
}
