// Package extrusion converts deposited line geometry into filament feed length.
package extrusion

import (
	"fmt"
	"math"
)

// DomainError reports an input for which the volumetric model is undefined.
type DomainError struct {
	Param string
	Value float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("extrusion: %s must be positive, got %g", e.Param, e.Value)
}

// CrossSection returns the circular cross-section area of filament with the given diameter in mm².
func CrossSection(filamentDiameter float64) (float64, error) {
	if !(filamentDiameter > 0) || math.IsInf(filamentDiameter, 0) {
		return 0, &DomainError{Param: "filament_diameter", Value: filamentDiameter}
	}
	r := filamentDiameter / 2
	return math.Pi * r * r, nil
}

// FeedLength returns the filament length that must be fed to deposit a line of
// travel × width × height, scaled by multiplier. A zero-length line needs no filament.
func FeedLength(travel, width, height, filamentDiameter, multiplier float64) (float64, error) {
	area, err := CrossSection(filamentDiameter)
	if err != nil {
		return 0, err
	}
	if travel == 0 {
		return 0, nil
	}
	volume := travel * width * height
	return volume / area * multiplier, nil
}

// Volume returns the filament volume in mm³ for a fed length.
func Volume(feed, filamentDiameter float64) (float64, error) {
	area, err := CrossSection(filamentDiameter)
	if err != nil {
		return 0, err
	}
	return feed * area, nil
}
