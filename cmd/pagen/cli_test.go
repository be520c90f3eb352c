package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/pagen/internal/config"
	"github.com/Simplici0/pagen/internal/settings"
)

func runCLI(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd(config.Config{DBPath: dbPath, Port: "0", LogLevel: "error"})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerateWritesToStdout(t *testing.T) {
	out, err := runCLI(t, filepath.Join(t.TempDir(), "cli.db"), "generate")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "; --------------------\n; gcode header\n"))
	assert.Contains(t, out, "\nM572 D0 S0.3\n")
}

func TestGenerateWritesFileWithOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pa.gcode")

	_, err := runCLI(t, filepath.Join(dir, "cli.db"), "generate",
		"--set", "pressure_advance_settings.finish=0.08",
		"--set", "object_settings.layers=20",
		"-o", path,
	)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 20, strings.Count(string(data), "\nM572 D0 S"))
	assert.Contains(t, string(data), "\nM572 D0 S0.08\n")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temporary file left behind: %s", e.Name())
	}
}

func TestGenerateInvalidSettingsWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pa.gcode")

	_, err := runCLI(t, filepath.Join(dir, "cli.db"), "generate",
		"--set", "filament_settings.filament_diameter=0",
		"-o", path,
	)
	var cerr *settings.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "filament_settings.filament_diameter", cerr.Path)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateFromSettingsFile(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "printer.yaml")

	doc := settings.Default()
	require.NoError(t, doc.Set("printer_settings.tool_index", 0.0))
	var buf bytes.Buffer
	require.NoError(t, settings.Encode(&buf, doc, settings.FormatYAML))
	require.NoError(t, os.WriteFile(settingsPath, buf.Bytes(), 0o600))

	out, err := runCLI(t, filepath.Join(dir, "cli.db"), "generate", "--settings", settingsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "\nT0\n")
	assert.Contains(t, out, "\nT-1\n")
}

func TestGenerateRejectsMalformedOverride(t *testing.T) {
	_, err := runCLI(t, filepath.Join(t.TempDir(), "cli.db"), "generate", "--set", "object_settings.width")
	assert.Error(t, err)
}

func TestDefaultsRoundTrip(t *testing.T) {
	out, err := runCLI(t, filepath.Join(t.TempDir(), "cli.db"), "defaults", "--format", "yaml")
	require.NoError(t, err)

	doc, err := settings.Decode([]byte(out), settings.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, settings.Default(), doc)
}

func TestProfileLifecycle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	out, err := runCLI(t, dbPath, "profile", "save", "fast", "--set", "speed_settings.fast_speed=150")
	require.NoError(t, err)
	assert.Contains(t, out, `profile "fast" created`)

	out, err = runCLI(t, dbPath, "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "fast")

	out, err = runCLI(t, dbPath, "profile", "show", "fast")
	require.NoError(t, err)
	doc, err := settings.Decode([]byte(out), settings.FormatJSON)
	require.NoError(t, err)
	v, err := doc.Lookup("speed_settings.fast_speed")
	require.NoError(t, err)
	assert.Equal(t, 150.0, v)

	out, err = runCLI(t, dbPath, "generate", "--profile", "fast")
	require.NoError(t, err)
	assert.Contains(t, out, "F9000")

	_, err = runCLI(t, dbPath, "profile", "delete", "fast")
	require.NoError(t, err)

	_, err = runCLI(t, dbPath, "profile", "show", "fast")
	assert.Error(t, err)
}

func TestProfileSaveRejectsInvalidSettings(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	_, err := runCLI(t, dbPath, "profile", "save", "broken", "--set", "object_settings.width=-5")
	require.Error(t, err)

	_, err = runCLI(t, dbPath, "profile", "show", "broken")
	assert.Error(t, err)
}

func TestPALookup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	out, err := runCLI(t, dbPath, "pa", "--height", "0.75")
	require.NoError(t, err)
	assert.Equal(t, "height 0.75 mm: calibration layer 1 of 75, pressure advance 0.0000\n", out)

	out, err = runCLI(t, dbPath, "pa")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 76)
	assert.Contains(t, lines[len(lines)-1], "15.550")
	assert.Contains(t, lines[len(lines)-1], "0.3000")
}

func TestUnknownLogLevel(t *testing.T) {
	_, err := runCLI(t, filepath.Join(t.TempDir(), "cli.db"), "--log-level", "chatty", "defaults")
	assert.Error(t, err)
}
