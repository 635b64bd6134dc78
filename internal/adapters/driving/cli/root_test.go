package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tributary/internal/logger"
)

func withBootstrap(t *testing.T, fn BootstrapFunc) {
	t.Helper()
	withServices(t, &Services{})
	bootstrapped = false
	SetBootstrap(fn)
	t.Cleanup(func() { SetBootstrap(nil) })
}

func TestRoot_BootstrapUsesConfigDir(t *testing.T) {
	var gotDir string
	withBootstrap(t, func(dir string) (*Services, error) {
		gotDir = dir
		return &Services{Settings: &mockSettings{}}, nil
	})

	out, err := executeCommand(t, "settings", "defaults", "--config-dir", "/tmp/tributary-test")

	require.NoError(t, err)
	assert.Equal(t, "/tmp/tributary-test", gotDir)
	assert.Contains(t, out, "Default Settings")
	assert.True(t, bootstrapped)
}

func TestRoot_BootstrapRunsOnce(t *testing.T) {
	calls := 0
	withBootstrap(t, func(string) (*Services, error) {
		calls++
		return &Services{Settings: &mockSettings{}}, nil
	})

	_, err := executeCommand(t, "settings", "defaults")
	require.NoError(t, err)
	_, err = executeCommand(t, "settings", "defaults")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestRoot_BootstrapError(t *testing.T) {
	withBootstrap(t, func(string) (*Services, error) {
		return nil, errors.New("config unreadable")
	})

	_, err := executeCommand(t, "settings")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialising: config unreadable")
}

func TestRoot_VerboseFlag(t *testing.T) {
	withServices(t, &Services{Settings: &mockSettings{}})
	t.Cleanup(func() { logger.SetVerbose(false) })

	_, err := executeCommand(t, "settings", "defaults", "-v")

	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}

func TestRoot_Commands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"auth", "connectors", "specs", "sync", "runs", "schedule", "settings", "mcp", "tui", "version"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}
