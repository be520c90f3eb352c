package toolpath

import (
	"math"

	"github.com/Simplici0/pagen/internal/settings"
)

// AdvanceValue returns the pressure advance for 0-based calibration layer l out
// of count layers, linearly interpolated from start to end. The first layer
// yields exactly start and the last exactly end.
func AdvanceValue(start, end float64, l, count int) (float64, error) {
	if count <= 1 {
		return 0, &settings.ConfigError{Path: "object_settings.layers", Reason: "sweep interpolation needs at least 2 layers"}
	}
	switch {
	case l <= 0:
		return start, nil
	case l >= count-1:
		return end, nil
	}
	return start + (end-start)*float64(l)/float64(count-1), nil
}

// LayerAtHeight maps a height above the bed, measured on the printed object, to
// the 0-based calibration layer printed there. Heights inside the base layers
// map to layer 0 and heights above the object to the last layer.
func LayerAtHeight(cfg settings.Config, height float64) int {
	count := cfg.SweepLayers()
	// Layer n (1-based) spans (top(n-1), top(n)] with top(n) = first + (n-1)*other.
	n := 1
	if height > cfg.Extrusion.FirstLayerHeight {
		n = 1 + int(math.Ceil((height-cfg.Extrusion.FirstLayerHeight)/cfg.Extrusion.OtherLayerHeight-1e-9))
	}
	l := n - cfg.Object.SkirtLayers - 1
	if l < 0 {
		return 0
	}
	if l > count-1 {
		return count - 1
	}
	return l
}

// ValueAtHeight returns the calibration layer and pressure advance printed at height.
func ValueAtHeight(cfg settings.Config, height float64) (layer int, value float64, err error) {
	if math.IsNaN(height) || math.IsInf(height, 0) || height < 0 {
		return 0, 0, &settings.ConfigError{Path: "height", Reason: "must be a finite, non-negative number"}
	}
	layer = LayerAtHeight(cfg, height)
	value, err = AdvanceValue(cfg.Sweep.Start, cfg.Sweep.Finish, layer, cfg.SweepLayers())
	return layer, value, err
}

// Step is one calibration layer: where it is printed and the value it uses.
// Layer counts calibration layers from 1, as shown to users.
type Step struct {
	Layer int     `json:"layer"`
	Z     float64 `json:"z"`
	Value float64 `json:"pressure_advance"`
}

// SweepTable lists every calibration layer from bottom to top.
func SweepTable(cfg settings.Config) ([]Step, error) {
	count := cfg.SweepLayers()
	steps := make([]Step, 0, count)
	for l := 0; l < count; l++ {
		v, err := AdvanceValue(cfg.Sweep.Start, cfg.Sweep.Finish, l, count)
		if err != nil {
			return nil, err
		}
		z := cfg.Extrusion.FirstLayerHeight + float64(cfg.Object.SkirtLayers+l)*cfg.Extrusion.OtherLayerHeight
		steps = append(steps, Step{Layer: l + 1, Z: z, Value: v})
	}
	return steps, nil
}
