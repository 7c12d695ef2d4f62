package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewRootCommand tests the command tree and global flags.
//
// WHY: Scripts call the subcommands and flags by name, so renaming any of
// them is a breaking change.
func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"run", "migrate", "taxonomy"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"verbose", "format", "db"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}

	run, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	for _, flag := range []string{"policy", "snapshots", "transactions", "offsets", "output", "no-export"} {
		assert.NotNil(t, run.Flags().Lookup(flag), flag)
	}

	for _, name := range []string{"import", "pending"} {
		sub, _, err := cmd.Find([]string{"taxonomy", name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

// TestRootCommand_InvalidFormat tests format validation.
func TestRootCommand_InvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"migrate", "--format", "xml", "--db", t.TempDir() + "/ledger.db"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"exit error", WrapExitError(ExitPending, "blocked", errors.New("x")), ExitPending},
		{"wrapped exit error", errors.Join(errors.New("outer"), &ExitError{Code: ExitCommandError, Message: "bad"}), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Error(t *testing.T) {
	assert.Equal(t, "blocked: x", WrapExitError(ExitPending, "blocked", errors.New("x")).Error())
	assert.Equal(t, "bad", (&ExitError{Code: ExitCommandError, Message: "bad"}).Error())
}
