package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/verilib/internal/backend"
	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/config"
	"github.com/roach88/verilib/internal/selection"
	"github.com/roach88/verilib/internal/structure"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution, including runs that certify nothing
	ExitFailure      = 1 // Fatal phase failure (tool failure, corruption, collision)
	ExitCommandError = 2 // Command error (missing config, bad flags, unparseable selection)
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeUsage      = "E100"
	ErrCodeNoConfig   = "E101"
	ErrCodeTool       = "E102"
	ErrCodeCollision  = "E103"
	ErrCodeSelection  = "E104"
	ErrCodeCorruption = "E105"
	ErrCodeInternal   = "E106"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	reported bool // already written by an OutputFormatter
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// usageError marks a bad flag combination or argument.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func newUsageError(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// classify maps an error onto its CLI error code and exit code.
func classify(err error) (string, int) {
	var usage *usageError
	var verrs validator.ValidationErrors
	switch {
	case config.IsMissing(err):
		return ErrCodeNoConfig, ExitCommandError
	case config.IsCorrupt(err):
		return ErrCodeCorruption, ExitFailure
	case errors.As(err, &usage), errors.As(err, &verrs), errors.Is(err, backend.ErrModuleFilter):
		return ErrCodeUsage, ExitCommandError
	case selection.IsParseError(err):
		return ErrCodeSelection, ExitCommandError
	case certs.IsCollision(err), structure.IsDuplicate(err):
		return ErrCodeCollision, ExitFailure
	case structure.IsCorrupt(err), certs.IsCorrupt(err):
		return ErrCodeCorruption, ExitFailure
	case backend.IsToolFailure(err):
		return ErrCodeTool, ExitFailure
	default:
		return ErrCodeInternal, ExitFailure
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
	RunID  string    `json:"run_id,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E100", "E101", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Result outputs data as a JSON envelope, or calls text to render it.
func (f *OutputFormatter) Result(data any, runID string, text func()) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
			RunID:  runID,
		})
	}
	text()
	return nil
}

// Error outputs an error in the configured format. Text errors go to the
// diagnostic writer so they never mix with piped results.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	w := f.GetErrWriter()
	fmt.Fprintf(w, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(w, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should return.
func (f *OutputFormatter) Fail(err error, details any) error {
	code, exit := classify(err)
	_ = f.Error(code, err.Error(), details)
	return &ExitError{Code: exit, Message: code, Err: err, reported: true}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
