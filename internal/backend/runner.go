package backend

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external tool in dir and returns its combined output.
// No timeout is applied; cancellation comes from ctx.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, &ToolError{Tool: name, Args: args, ExitCode: -1, Err: err, Hint: installHints[name]}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return out, &ToolError{Tool: name, Args: args, ExitCode: code, Output: string(out), Err: err}
	}
	return out, nil
}

var installHints = map[string]string{
	"probe-verus":   "see https://github.com/Beneficial-AI-Foundation/probe-verus for installation instructions",
	"leanblueprint": "install it with: pip install leanblueprint",
	"uv":            "see https://docs.astral.sh/uv/ for installation instructions",
}

// maxOutput bounds the tool output quoted in error messages.
const maxOutput = 4000

// ToolError reports a tool that could not be started or exited non-zero.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Hint     string
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s failed", e.Tool, strings.Join(e.Args, " "))
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "\n%s", e.Hint)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		if len(out) > maxOutput {
			out = "..." + out[len(out)-maxOutput:]
		}
		fmt.Fprintf(&b, "\n%s", out)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// OutputError reports tool output that is missing or cannot be parsed.
type OutputError struct {
	Tool string
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("%s output %s: %v", e.Tool, e.Path, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// IsToolFailure reports whether err is a BackendToolFailure: a failed tool
// run or unusable tool output.
func IsToolFailure(err error) bool {
	var te *ToolError
	var oe *OutputError
	return errors.As(err, &te) || errors.As(err, &oe)
}
