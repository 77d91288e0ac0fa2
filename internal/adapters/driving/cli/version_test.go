package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_PrintsVersion(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	prev := version
	SetVersion("1.2.3")
	defer SetVersion(prev)

	out, err := execute("version")

	require.NoError(t, err)
	assert.Equal(t, "clipsearch version 1.2.3\n", out)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"catalog", "download", "extract", "consolidate", "build", "search", "serve", "tui", "runs", "inspect", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("data-dir"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config-dir"))
}

func TestTUICmd_RequiresTerminal(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("tui")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "interactive terminal")
	assert.Zero(t, testEngine.reloadCalls)
}
