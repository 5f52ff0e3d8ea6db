package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "skillgate", cmd.Use)
	assert.Contains(t, cmd.Long, "guideline skills")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"hook", "validate", "sessions"}

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

	rulesFlag := cmd.PersistentFlags().Lookup("rules")
	require.NotNil(t, rulesFlag)
	assert.Equal(t, "", rulesFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)
}

func TestHookCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	hookCmd, _, err := cmd.Find([]string{"hook"})
	require.NoError(t, err)

	deadlineFlag := hookCmd.Flags().Lookup("deadline")
	require.NotNil(t, deadlineFlag)
	assert.Equal(t, "300ms", deadlineFlag.DefValue)

	lookbackFlag := hookCmd.Flags().Lookup("lookback")
	require.NotNil(t, lookbackFlag)
	assert.Equal(t, "20", lookbackFlag.DefValue)
}

func TestValidateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	validateCmd, _, err := cmd.Find([]string{"validate"})
	require.NoError(t, err)

	strictFlag := validateCmd.Flags().Lookup("strict")
	require.NotNil(t, strictFlag)
	assert.Equal(t, "false", strictFlag.DefValue)
}

func TestSessionsPruneFlags(t *testing.T) {
	cmd := NewRootCommand()
	pruneCmd, _, err := cmd.Find([]string{"sessions", "prune"})
	require.NoError(t, err)

	olderFlag := pruneCmd.Flags().Lookup("older-than")
	require.NotNil(t, olderFlag)
	assert.Equal(t, "24h0m0s", olderFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("{}"))
	cmd.SetArgs([]string{"--format", "invalid", "hook"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestResolvePaths(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := &RootOptions{}
		resolvePaths(opts)
		assert.Contains(t, opts.RulesPath, "rules.yaml")
		assert.Contains(t, opts.DBPath, "session.db")
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv(EnvRules, "/tmp/custom-rules.cue")
		t.Setenv(EnvDB, "/tmp/custom.db")

		opts := &RootOptions{}
		resolvePaths(opts)
		assert.Equal(t, "/tmp/custom-rules.cue", opts.RulesPath)
		assert.Equal(t, "/tmp/custom.db", opts.DBPath)
	})

	t.Run("flags beat env", func(t *testing.T) {
		t.Setenv(EnvRules, "/tmp/from-env.yaml")

		opts := &RootOptions{RulesPath: "/tmp/from-flag.yaml"}
		resolvePaths(opts)
		assert.Equal(t, "/tmp/from-flag.yaml", opts.RulesPath)
	})
}
