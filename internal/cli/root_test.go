package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "verilib", cmd.Use)
	assert.Contains(t, cmd.Long, "verilib create")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"create", "atomize", "specify", "verify", "status", "history"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestCreateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	createCmd, _, err := cmd.Find([]string{"create"})
	require.NoError(t, err)

	typeFlag := createCmd.Flags().Lookup("type")
	require.NotNil(t, typeFlag)
	assert.Equal(t, "", typeFlag.DefValue)

	formFlag := createCmd.Flags().Lookup("form")
	require.NotNil(t, formFlag)
	assert.Equal(t, "documents", formFlag.DefValue)

	rootFlag := createCmd.Flags().Lookup("root")
	require.NotNil(t, rootFlag)
	assert.Equal(t, ".verilib/structure", rootFlag.DefValue)

	crateFlag := createCmd.Flags().Lookup("crate")
	require.NotNil(t, crateFlag)
	assert.Equal(t, "", crateFlag.DefValue)
}

func TestVerifyCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	verifyCmd, _, err := cmd.Find([]string{"verify"})
	require.NoError(t, err)

	moduleFlag := verifyCmd.Flags().Lookup("verify-only-module")
	require.NotNil(t, moduleFlag)
	assert.Equal(t, "", moduleFlag.DefValue)
}

func TestSpecifyCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	specifyCmd, _, err := cmd.Find([]string{"specify"})
	require.NoError(t, err)

	selectFlag := specifyCmd.Flags().Lookup("select")
	require.NotNil(t, selectFlag)
}

func TestHistoryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	historyCmd, _, err := cmd.Find([]string{"history"})
	require.NoError(t, err)

	limitFlag := historyCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "n", limitFlag.Shorthand)
	assert.Equal(t, "20", limitFlag.DefValue)
}

func TestInvalidFormatIsCommandError(t *testing.T) {
	cmd := NewRootCommand()
	stderr := &bytes.Buffer{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"status", t.TempDir(), "--format", "yaml"})

	err := Execute(cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr.String(), "Error [E100]")
	assert.Contains(t, stderr.String(), `invalid format "yaml"`)
}

func TestMissingRequiredFlagIsCommandError(t *testing.T) {
	cmd := NewRootCommand()
	stderr := &bytes.Buffer{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"create", t.TempDir()})

	err := Execute(cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr.String(), "type")
}
