package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioDir = "../../internal/scenario/testdata"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReplayText(t *testing.T) {
	out, err := execute(t, "replay", filepath.Join(scenarioDir, "lid_switch.yaml"))
	require.NoError(t, err)

	golden, err := os.ReadFile(filepath.Join(scenarioDir, "golden", "lid_switch.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(golden), out)
}

func TestReplayMultipleFiles(t *testing.T) {
	out, err := execute(t, "replay",
		filepath.Join(scenarioDir, "lid_switch.yaml"),
		filepath.Join(scenarioDir, "lid_disable_touchpad.yaml"),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "scenario: lid_switch\n")
	assert.Contains(t, out, "scenario: lid_disable_touchpad\n")
}

func TestReplayJSON(t *testing.T) {
	out, err := execute(t, "replay", "--format", "json", filepath.Join(scenarioDir, "lid_switch.yaml"))
	require.NoError(t, err)

	var doc struct {
		Scenario string `json:"scenario"`
		Events   []struct {
			Kind  string `json:"kind"`
			State string `json:"state"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "lid_switch", doc.Scenario)
	require.Len(t, doc.Events, 2)
	assert.Equal(t, "SWITCH_TOGGLE", doc.Events[0].Kind)
	assert.Equal(t, "ON", doc.Events[0].State)
	assert.Equal(t, "OFF", doc.Events[1].State)
}

func TestReplayInvalidFormat(t *testing.T) {
	_, err := execute(t, "replay", "--format", "xml", filepath.Join(scenarioDir, "lid_switch.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestReplayRequiresArgs(t *testing.T) {
	_, err := execute(t, "replay")
	require.Error(t, err)
}

func TestReplayBadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\nsteps: []\n"), 0o644))

	_, err := execute(t, "replay", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
}
