package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_PassingDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", counterScenario)

	out, err := execCommand(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 scenario(s) passed")
}

func TestTest_FailingScenarioExitCode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", counterScenario)
	writeFile(t, dir, "broken.yaml", counterScenario+`  - type: final_state
    target: c-1
    property: count
    value: 99
`)

	out, err := execCommand(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "1 passed, 1 failed (of 2)")
}

func TestTest_EmptyDirectoryExitCode(t *testing.T) {
	_, err := execCommand(t, "test", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
