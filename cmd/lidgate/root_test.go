package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/lidgate/internal/logic"
)

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "lidgate", cmd.Use)
	assert.Contains(t, cmd.Long, "lid is closed")
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"run", "replay", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := newRootCommand()

	level := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, level)
	assert.Equal(t, "info", level.DefValue)

	format := cmd.PersistentFlags().Lookup("log-format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	run, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	defaults := map[string]string{
		"poll":          "20ms",
		"lid-evdev":     "",
		"lid-gpio-chip": "gpiochip0",
		"lid-gpio-line": "-1",
		"debounce":      "10ms",
		"topic-prefix":  "lidgate",
		"heartbeat":     "15m0s",
		"http":          ":8080",
		"print-state":   "false",
	}
	for name, want := range defaults {
		f := run.Flags().Lookup(name)
		require.NotNil(t, f, "flag --%s", name)
		assert.Equal(t, want, f.DefValue, "flag --%s", name)
	}
	require.NotNil(t, run.Flags().Lookup("inhibit"))
	require.NotNil(t, run.Flags().Lookup("bind"))
}

func TestVersionCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "lidgate dev\n", buf.String())
}

func TestInvalidLogLevel(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-level", "loud", "version"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configure logging")
}

func TestRunRequiresLidSource(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--http", ""})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no lid source")
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments("inhibit", []string{"touchpad=/sys/class/input/input5", "kbd=/sys/class/input/input3"})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{
		{"touchpad", "/sys/class/input/input5"},
		{"kbd", "/sys/class/input/input3"},
	}, got)

	for _, bad := range []string{"touchpad", "=x", "touchpad="} {
		_, err := parseAssignments("inhibit", []string{bad})
		assert.Error(t, err, "value %q", bad)
	}
}

func TestBuildBindingsDefault(t *testing.T) {
	b, err := buildBindings(
		[]logic.SwitchID{"lid", "lid-gpio"},
		[]logic.DeviceID{"touchpad", "kbd"},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, logic.Bindings{
		"lid":      {"touchpad", "kbd"},
		"lid-gpio": {"touchpad", "kbd"},
	}, b)
}

func TestBuildBindingsExplicit(t *testing.T) {
	b, err := buildBindings(
		[]logic.SwitchID{"lid", "lid-gpio"},
		[]logic.DeviceID{"touchpad", "kbd"},
		[][2]string{{"lid", "touchpad"}, {"lid-gpio", "kbd"}, {"lid", "kbd"}},
	)
	require.NoError(t, err)
	assert.Equal(t, logic.Bindings{
		"lid":      {"touchpad", "kbd"},
		"lid-gpio": {"kbd"},
	}, b)
}

func TestBuildBindingsUnknown(t *testing.T) {
	_, err := buildBindings([]logic.SwitchID{"lid"}, []logic.DeviceID{"touchpad"}, [][2]string{{"dock", "touchpad"}})
	assert.ErrorIs(t, err, logic.ErrUnknownSwitch)

	_, err = buildBindings([]logic.SwitchID{"lid"}, []logic.DeviceID{"touchpad"}, [][2]string{{"lid", "mouse"}})
	assert.ErrorIs(t, err, logic.ErrUnknownDevice)
}
