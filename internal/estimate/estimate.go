package estimate

import (
	"math"
	"time"

	"github.com/Simplici0/pagen/internal/extrusion"
)

// Input represents the totals of a generated program needed for the estimate.
type Input struct {
	FilamentMM       float64
	FilamentDiameter float64
	Seconds          float64
}

// Material represents filament properties shared across estimates.
type Material struct {
	Density   float64 // g/cm³
	CostPerKg float64
}

// Usage contains the material and time figures of a print.
type Usage struct {
	FilamentMM float64
	VolumeCM3  float64
	Grams      float64
	Cost       float64
	Duration   time.Duration
}

// Calculate computes filament volume, weight, cost and motion time.
// A non-positive filament diameter yields zero volume and weight.
func Calculate(in Input, mat Material) Usage {
	volumeCM3 := 0.0
	if mm3, err := extrusion.Volume(in.FilamentMM, in.FilamentDiameter); err == nil {
		volumeCM3 = mm3 / 1000.0
	}
	grams := volumeCM3 * mat.Density
	cost := (grams / 1000.0) * mat.CostPerKg

	return Usage{
		FilamentMM: in.FilamentMM,
		VolumeCM3:  volumeCM3,
		Grams:      grams,
		Cost:       cost,
		Duration:   time.Duration(math.Round(in.Seconds)) * time.Second,
	}
}
