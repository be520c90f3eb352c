// Package program assembles the complete calibration G-code: preamble,
// base layers, temperature change, calibration layers and postamble.
package program

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/Simplici0/pagen/internal/estimate"
	"github.com/Simplici0/pagen/internal/settings"
	"github.com/Simplici0/pagen/internal/template"
	"github.com/Simplici0/pagen/internal/toolpath"
)

// Result is a fully generated program.
type Result struct {
	GCode       []byte
	Layers      int
	SweepLayers int
	Usage       estimate.Usage
}

// Generate validates doc and renders the program into memory. Nothing is
// returned unless every stage succeeded, so callers never see partial output.
func Generate(doc *settings.Document, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := settings.Resolve(doc)
	if err != nil {
		return nil, err
	}
	start, err := template.Expand(cfg.StartGCode, doc, settings.FormatValue)
	if err != nil {
		return nil, fmt.Errorf("start gcode: %w", err)
	}
	end, err := template.Expand(cfg.EndGCode, doc, settings.FormatValue)
	if err != nil {
		return nil, fmt.Errorf("end gcode: %w", err)
	}

	var buf bytes.Buffer
	g := toolpath.NewGenerator(cfg, &buf)
	em := g.Emitter()

	banner(em, "gcode header")
	em.Block(start)
	if cfg.Printer.ToolIndex >= 0 {
		em.Command("T%d", cfg.Printer.ToolIndex)
	}
	em.Blank()

	banner(em, "gcode generated", "model base")
	if err := g.Skirt(); err != nil {
		return nil, fmt.Errorf("base layers: %w", err)
	}
	em.Blank()

	em.Comment("switch to calibration temperatures")
	em.Command("M140 S%s", settings.FormatValue(cfg.Filament.OtherLayerBedTemp))
	em.Command("M104 S%s", settings.FormatValue(cfg.Filament.OtherLayerExtruderTemp))
	em.Blank()

	banner(em, "gcode generated", "model top")
	if err := g.Sweep(); err != nil {
		return nil, fmt.Errorf("calibration layers: %w", err)
	}
	em.Blank()

	banner(em, "gcode footer")
	if cfg.Printer.ToolIndex >= 0 {
		em.Command("T-1")
	}
	em.Block(end)

	stats := em.Stats()
	usage := estimate.Calculate(
		estimate.Input{FilamentMM: stats.Filament, FilamentDiameter: cfg.Filament.Diameter, Seconds: stats.Seconds},
		estimate.Material{Density: cfg.Filament.Density, CostPerKg: cfg.Filament.CostPerKg},
	)
	em.Blank()
	em.Comment("filament used [mm] = %.2f", usage.FilamentMM)
	em.Comment("filament used [cm3] = %.2f", usage.VolumeCM3)
	em.Comment("filament used [g] = %.2f", usage.Grams)
	em.Comment("filament cost = %.2f", usage.Cost)
	em.Comment("estimated printing time = %s", usage.Duration)
	em.Comment("pressure advance %s to %s over %d layers",
		settings.FormatValue(cfg.Sweep.Start), settings.FormatValue(cfg.Sweep.Finish), cfg.SweepLayers())

	if err := em.Err(); err != nil {
		return nil, err
	}

	logger.Info("generated calibration program",
		"layers", stats.Layers,
		"calibration_layers", cfg.SweepLayers(),
		"moves", stats.Moves,
		"bytes", buf.Len(),
	)

	return &Result{
		GCode:       buf.Bytes(),
		Layers:      stats.Layers,
		SweepLayers: cfg.SweepLayers(),
		Usage:       usage,
	}, nil
}

func banner(em *toolpath.Emitter, titles ...string) {
	em.Comment("--------------------")
	for _, t := range titles {
		em.Comment("%s", t)
	}
	em.Comment("--------------------")
}
