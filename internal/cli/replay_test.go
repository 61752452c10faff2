package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_RebuildsFinalState(t *testing.T) {
	dbPath := seedJournal(t)

	out, err := execCommand(t, "replay", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Replayed 5 mutation(s), last seq 5")
	assert.Contains(t, out, "AudioChannel")
	assert.Contains(t, out, "maxInputLevel = 10")
	assert.Contains(t, out, "currentLevel = 7")
	assert.Contains(t, out, "currentLevel = 10")
	assert.Contains(t, out, "run with --verify")
}

func TestReplay_Verify(t *testing.T) {
	dbPath := seedJournal(t)

	out, err := execCommand(t, "replay", "--db", dbPath, "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Content verification passed")
}

func TestReplay_JSONReport(t *testing.T) {
	dbPath := seedJournal(t)

	out, err := execCommand(t, "replay", "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var response struct {
		Status string       `json:"status"`
		Data   ReplayReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, 5, response.Data.Applied)
	assert.Equal(t, int64(5), response.Data.LastSeq)
	require.Len(t, response.Data.Targets, 3)

	// Targets sort lexically: the type table comes first.
	assert.Equal(t, "AudioChannel", response.Data.Targets[0].Target)
	assert.EqualValues(t, 10, response.Data.Targets[0].Properties["maxInputLevel"])
}

func TestReplay_EmptyJournal(t *testing.T) {
	dbPath := t.TempDir() + "/empty.db"

	// Opening creates the schema; no mutations yet.
	out, err := execCommand(t, "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "(no mutations)")

	out, err = execCommand(t, "replay", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Replayed 0 mutation(s), last seq 0")
	assert.Contains(t, out, "(empty journal)")
}

func TestReplay_MissingDatabaseFlag(t *testing.T) {
	_, err := execCommand(t, "replay")
	require.Error(t, err)
}
