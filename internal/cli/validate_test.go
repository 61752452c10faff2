package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidDecls(t *testing.T) {
	path := writeFile(t, t.TempDir(), "counter.cue", counterDecls)

	out, err := execCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 type(s) valid")
}

func TestValidate_InvalidDeclsExitCode(t *testing.T) {
	// Computed property without a getter: E104.
	path := writeFile(t, t.TempDir(), "bad.cue", `types: {
    Thermostat: {
        properties: {
            celsius: {kind: "computed_ro"}
        }
    }
}
`)

	out, err := execCommand(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E104")
}

func TestValidate_MissingPathExitCode(t *testing.T) {
	out, err := execCommand(t, "validate", "/nonexistent/decls")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestValidate_CycleWarningDoesNotFail(t *testing.T) {
	// A cap observer re-writes its own property: reported, not fatal.
	path := writeFile(t, t.TempDir(), "channel.cue", `types: {
    Channel: {
        properties: {
            level: {
                kind:    "stored_var"
                default: 0
                did_set: [{op: "cap", ref: "type.Channel.max"}]
            }
            max: {kind: "stored_let", scope: "type", default: 10}
        }
    }
}
`)

	out, err := execCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 type(s) valid")
	assert.Contains(t, out, "Self-writing observer")
}

func TestValidate_JSONOutput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "counter.cue", counterDecls)

	out, err := execCommand(t, "validate", path, "--format", "json")
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestValidate_JSONErrorsCarryData(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `types: {
    Config: {
        properties: {
            retries: {kind: "stored_var", scope: "type"}
        }
    }
}
`)

	out, err := execCommand(t, "validate", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "error", response.Status)
	require.NotNil(t, response.Error)
	// Type-scoped stored property without a default: E109.
	assert.Equal(t, "E109", response.Error.Code)
}
