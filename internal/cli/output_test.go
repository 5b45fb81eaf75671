package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/verilib/internal/backend"
	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/config"
	"github.com/roach88/verilib/internal/selection"
	"github.com/roach88/verilib/internal/structure"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]int{"entries": 3}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONResultCarriesRunID(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	called := false
	err := formatter.Result(map[string]int{"after": 2}, "run-0001", func() { called = true })
	require.NoError(t, err)
	assert.False(t, called, "text renderer is not used for json")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-0001", resp.RunID)
}

func TestOutputFormatter_TextResult(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Result(nil, "run-0001", func() { fmt.Fprint(buf, "rendered") })
	require.NoError(t, err)
	assert.Equal(t, "rendered", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeTool, "probe-verus failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E102", resp.Error.Code)
	assert.Equal(t, "probe-verus failed", resp.Error.Message)
}

func TestOutputFormatter_TextErrorGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "text",
		Writer:    out,
		ErrWriter: errOut,
	}

	err := formatter.Error(ErrCodeNoConfig, "verilib config not found", map[string]string{"root": "."})
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error [E101]")
	assert.NotContains(t, errOut.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"file": "stubs.json"}
	err := formatter.Error(ErrCodeCorruption, "corrupt structure", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E105]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Loading %s", "stubs.json")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Loading stubs.json")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{"config_missing", fmt.Errorf("%w at x", config.ErrMissing), ErrCodeNoConfig, ExitCommandError},
		{"invalid_config", config.New("other", "", "").Validate(), ErrCodeUsage, ExitCommandError},
		{"corrupt_config", &config.CorruptError{Path: "config.json", Err: errors.New("bad")}, ErrCodeCorruption, ExitFailure},
		{"usage", newUsageError("bad flag"), ErrCodeUsage, ExitCommandError},
		{"module_filter", fmt.Errorf("wrap: %w", backend.ErrModuleFilter), ErrCodeUsage, ExitCommandError},
		{"selection", &selection.ParseError{Token: "7", N: 5}, ErrCodeSelection, ExitCommandError},
		{"tool", &backend.ToolError{Tool: "uv", ExitCode: 1}, ErrCodeTool, ExitFailure},
		{"collision", &certs.CollisionError{First: "a", Second: "A"}, ErrCodeCollision, ExitFailure},
		{"duplicate", &structure.DuplicateError{}, ErrCodeCollision, ExitFailure},
		{"corrupt_store", &structure.CorruptError{Path: "stubs.json", Err: errors.New("bad")}, ErrCodeCorruption, ExitFailure},
		{"other", errors.New("disk full"), ErrCodeInternal, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, exit := classify(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantExit, exit)
		})
	}
}

func TestFailReturnsReportedExitError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Fail(&selection.ParseError{Token: "7", N: 5}, nil)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, selection.IsParseError(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSelection, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "[1,5]")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "usage"))))
}
