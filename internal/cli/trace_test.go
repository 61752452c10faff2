package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoChannelScenario = `name: two-channels
description: capped channel writes spill into the shared type table
id_prefix: ch
decls: |
  types: {
      AudioChannel: {
          properties: {
              currentLevel: {
                  kind:    "stored_var"
                  default: 0
                  did_set: [
                      {op: "cap", ref: "type.AudioChannel.thresholdLevel"},
                      {op: "record_max", ref: "type.AudioChannel.maxInputLevel"},
                  ]
              }
              thresholdLevel: {kind: "stored_let", scope: "type", default: 10}
              maxInputLevel: {kind: "stored_var", scope: "type", default: 0}
          }
      }
  }
steps:
  - op: construct
    type: AudioChannel
    as: a
  - op: construct
    type: AudioChannel
    as: b
  - op: set
    on: a
    property: currentLevel
    value: 7
  - op: set
    on: b
    property: currentLevel
    value: 11
`

// seedJournal runs the two-channel scenario into a temp database and
// returns the database path. The run leaves 5 mutations behind: two
// external writes, the cap rewrite, and two record_max observer writes.
func seedJournal(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	scenarioPath := writeFile(t, dir, "channels.yaml", twoChannelScenario)
	dbPath := filepath.Join(dir, "prism.db")

	_, err := execCommand(t, "run", scenarioPath, "--db", dbPath)
	require.NoError(t, err)
	return dbPath
}

func TestTrace_FullTimeline(t *testing.T) {
	dbPath := seedJournal(t)

	out, err := execCommand(t, "trace", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for 3 target(s)")
	assert.Contains(t, out, "[1] EXT ch-1.currentLevel 0 → 7")
	assert.Contains(t, out, "[2] OBS/1 AudioChannel.maxInputLevel 0 → 7")
	assert.Contains(t, out, "[3] EXT ch-2.currentLevel 0 → 11")
	assert.Contains(t, out, "[4] OBS/1 ch-2.currentLevel 11 → 10")
	assert.Contains(t, out, "[5] OBS/2 AudioChannel.maxInputLevel 7 → 10")
	assert.Contains(t, out, "Total Mutations: 5")
	assert.Contains(t, out, "External:        2")
	assert.Contains(t, out, "Observer:        3")
	assert.Contains(t, out, "Max Depth:       2")
}

func TestTrace_TargetFilter(t *testing.T) {
	dbPath := seedJournal(t)

	out, err := execCommand(t, "trace", "--db", dbPath, "--target", "ch-2")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for target: ch-2")
	assert.NotContains(t, out, "ch-1.currentLevel")
	assert.Contains(t, out, "Total Mutations: 2")
}

func TestTrace_PropertyFilter(t *testing.T) {
	dbPath := seedJournal(t)

	out, err := execCommand(t, "trace", "--db", dbPath,
		"--target", "AudioChannel", "--property", "maxInputLevel")
	require.NoError(t, err)

	assert.Contains(t, out, "[2] OBS/1 AudioChannel.maxInputLevel 0 → 7")
	assert.Contains(t, out, "[5] OBS/2 AudioChannel.maxInputLevel 7 → 10")
	assert.Contains(t, out, "Total Mutations: 2")
}

func TestTrace_PropertyWithoutTarget(t *testing.T) {
	dbPath := seedJournal(t)

	_, err := execCommand(t, "trace", "--db", dbPath, "--property", "currentLevel")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_MissingDatabaseFlag(t *testing.T) {
	_, err := execCommand(t, "trace")
	require.Error(t, err)
}

func TestTrace_JSONOutput(t *testing.T) {
	dbPath := seedJournal(t)

	out, err := execCommand(t, "trace", "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var response struct {
		Status string `json:"status"`
		Data   struct {
			Targets   []string         `json:"targets"`
			Mutations []map[string]any `json:"mutations"`
			Stats     TraceStats       `json:"stats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Len(t, response.Data.Mutations, 5)
	assert.Equal(t, int64(5), response.Data.Stats.LastSeq)
	assert.ElementsMatch(t, []string{"AudioChannel", "ch-1", "ch-2"}, response.Data.Targets)
}
