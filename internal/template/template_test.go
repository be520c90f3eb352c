package template_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/pagen/internal/settings"
	"github.com/Simplici0/pagen/internal/template"
)

func TestExpand_SubstitutesDottedPaths(t *testing.T) {
	doc := settings.Default()
	require.NoError(t, doc.Set("filament_settings.first_layer_bed_temp", 65.0))

	got, err := template.Expand("M140 S[filament_settings.first_layer_bed_temp] ; set bed temp\nG28 [printer_settings.homing_axes]",
		doc, settings.FormatValue)
	require.NoError(t, err)
	assert.Equal(t, "M140 S65 ; set bed temp\nG28 X Y Z", got)
}

func TestExpand_SeveralReferencesOnOneLine(t *testing.T) {
	doc := settings.Default()
	got, err := template.Expand("G1 X[printer_settings.bed_min_x]Y[printer_settings.bed_max_y] F3000", doc, settings.FormatValue)
	require.NoError(t, err)
	assert.Equal(t, "G1 X0Y300 F3000", got)
}

func TestExpand_LeavesNonReferencesAlone(t *testing.T) {
	doc := settings.Default()
	in := "; [note] keep [1.5] and [ ] as written"
	got, err := template.Expand(in, doc, settings.FormatValue)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestExpand_UnresolvableReferenceFails(t *testing.T) {
	doc := settings.Default()
	_, err := template.Expand("G28\nM104 S[filament_settings.nozzle_temp]", doc, settings.FormatValue)
	require.Error(t, err)

	var cerr *settings.ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "filament_settings.nozzle_temp", cerr.Path)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReferences(t *testing.T) {
	got := template.References("M104 S[a.b] ; [c.d] [e]")
	assert.Equal(t, []string{"a.b", "c.d"}, got)
}
