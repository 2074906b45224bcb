package commands_test

import (
	"runtime"
	"testing"

	"github.com/compozy/storepulse/cmd/storepulse/commands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	t.Run("Should print build information without a config file", func(t *testing.T) {
		output, err := executeCommand(commands.Root(), "version", "--config", "/nonexistent/storepulse.yaml")

		require.NoError(t, err)
		assert.Contains(t, output, "StorePulse - Commerce Analytics")
		assert.Contains(t, output, "Version:    "+commands.Version)
		assert.Contains(t, output, "Go Version: "+runtime.Version())
		assert.Contains(t, output, runtime.GOOS+"/"+runtime.GOARCH)
	})

	t.Run("Should reflect overridden build variables", func(t *testing.T) {
		original := commands.GitCommit
		commands.GitCommit = "abc123def"
		defer func() { commands.GitCommit = original }()

		output, err := executeCommand(commands.Root(), "version")

		require.NoError(t, err)
		assert.Contains(t, output, "Git Commit: abc123def")
	})
}
