package program

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/pagen/internal/extrusion"
	"github.com/Simplici0/pagen/internal/settings"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func removeEntry(doc *settings.Document, group, key string) {
	g := doc.Group(group)
	for i, e := range g.Entries {
		if e.Key == key {
			g.Entries = append(g.Entries[:i], g.Entries[i+1:]...)
			return
		}
	}
}

func TestGenerate_DefaultProgram(t *testing.T) {
	res, err := Generate(settings.Default(), quietLogger())
	require.NoError(t, err)

	out := string(res.GCode)
	assert.Equal(t, 75, res.SweepLayers)
	assert.Equal(t, 77, res.Layers)
	assert.Equal(t, 75, strings.Count(out, "\nM572 D0 S"))
	assert.Contains(t, out, "\nG28 X Y Z\n")
	assert.Contains(t, out, "\nM190 S60 ; wait for bed temp\n")
	assert.Contains(t, out, "\nM109 S220 ; wait for extruder temp\n")
	assert.Contains(t, out, "\nM572 D0 S0\n")
	assert.Contains(t, out, "\nM572 D0 S0.3\n")
	assert.NotContains(t, out, "_settings.", "every template reference must be expanded")
	assert.NotContains(t, out, "\nT", "no tool commands without a tool changer")
	assert.True(t, strings.HasPrefix(out, "; --------------------\n; gcode header\n"))
	assert.Greater(t, res.Usage.FilamentMM, 0.0)
	assert.Greater(t, res.Usage.Grams, 0.0)
}

func TestGenerate_SectionOrder(t *testing.T) {
	res, err := Generate(settings.Default(), quietLogger())
	require.NoError(t, err)
	out := string(res.GCode)

	order := []string{
		"; gcode header",
		"G28 X Y Z",
		"; model base",
		"; -> layer nr=1",
		"; -> layer nr=2",
		"M140 S60\nM104 S210\n",
		"; model top",
		"; -> layer nr=3",
		"M572 D0 S0\n",
		"; gcode footer",
		"M104 S0 ; turn off extruder",
		"; filament used [mm]",
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		require.GreaterOrEqual(t, idx, 0, "missing %q", marker)
		assert.Greater(t, idx, last, "%q out of order", marker)
		last = idx
	}
}

func TestGenerate_FinalLayerHeight(t *testing.T) {
	res, err := Generate(settings.Default(), quietLogger())
	require.NoError(t, err)

	var lastZ string
	for _, line := range strings.Split(string(res.GCode), "\n") {
		if strings.HasPrefix(line, "G1 Z") {
			lastZ = strings.Fields(line)[1]
		}
	}
	// 0.35 + 76 * 0.2
	assert.Equal(t, "Z15.55", lastZ)
}

func TestGenerate_IsDeterministic(t *testing.T) {
	a, err := Generate(settings.Default(), quietLogger())
	require.NoError(t, err)
	b, err := Generate(settings.Default(), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, a.GCode, b.GCode)
}

func TestGenerate_ToolChanger(t *testing.T) {
	doc := settings.Default()
	require.NoError(t, doc.Set("printer_settings.tool_index", 1.0))

	res, err := Generate(doc, quietLogger())
	require.NoError(t, err)
	out := string(res.GCode)

	assert.Contains(t, out, "\nT1\n")
	assert.Contains(t, out, "\nT-1\n")
	assert.Contains(t, out, "\nM572 D1 S0\n")
	assert.Less(t, strings.Index(out, "\nT1\n"), strings.Index(out, "; model base"))
	assert.Greater(t, strings.Index(out, "\nT-1\n"), strings.Index(out, "; gcode footer"))
}

func TestGenerate_RejectsInfiniteSettingsBeforeWriting(t *testing.T) {
	paths := []string{
		"speed_settings.fast_speed",
		"filament_settings.other_layer_extruder_temp",
		"extrusion_settings.other_layer_extrusion_multiplier",
		"filament_settings.filament_diameter",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			doc := settings.Default()
			require.NoError(t, doc.SetString(path, "inf"))

			res, err := Generate(doc, quietLogger())
			require.Error(t, err)
			assert.Nil(t, res)

			var cerr *settings.ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, path, cerr.Path)

			var derr *extrusion.DomainError
			assert.False(t, errors.As(err, &derr))
		})
	}
}

func TestGenerate_RejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(doc *settings.Document)
		wantPath string
	}{
		{
			name:     "zero filament diameter",
			mutate:   func(doc *settings.Document) { _ = doc.Set("filament_settings.filament_diameter", 0.0) },
			wantPath: "filament_settings.filament_diameter",
		},
		{
			name:     "single calibration layer",
			mutate:   func(doc *settings.Document) { _ = doc.Set("object_settings.layers", 1.0) },
			wantPath: "object_settings.layers",
		},
		{
			name:     "calibration height below two layers",
			mutate:   func(doc *settings.Document) { _ = doc.Set("object_settings.height", 0.3) },
			wantPath: "object_settings.height",
		},
		{
			name:     "missing key",
			mutate:   func(doc *settings.Document) { removeEntry(doc, "speed_settings", "slow_speed") },
			wantPath: "speed_settings.slow_speed",
		},
		{
			name:     "non-numeric width",
			mutate:   func(doc *settings.Document) { _ = doc.Set("object_settings.width", "wide") },
			wantPath: "object_settings.width",
		},
		{
			name:     "unresolvable template reference",
			mutate:   func(doc *settings.Document) { doc.EndGCode += "\nM104 S[filament_settings.standby_temp]" },
			wantPath: "filament_settings.standby_temp",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := settings.Default()
			tt.mutate(doc)

			res, err := Generate(doc, quietLogger())
			require.Error(t, err)
			assert.Nil(t, res)

			var cerr *settings.ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.wantPath, cerr.Path)

			var derr *extrusion.DomainError
			assert.False(t, errors.As(err, &derr))
		})
	}
}
