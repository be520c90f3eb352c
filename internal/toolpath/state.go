package toolpath

import "math"

// Vec is a point or displacement in the XY plane, in mm.
type Vec struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y}
}

// Dist returns the Euclidean distance between v and o.
func (v Vec) Dist(o Vec) float64 {
	return math.Hypot(o.X-v.X, o.Y-v.Y)
}

// State is the generator's view of the machine: tool position, extruder
// position since the last layer change, and the current layer.
// It is owned by a single generation run.
type State struct {
	Pos         Vec
	Z           float64
	E           float64
	LayerHeight float64
	Layer       int

	// Positioned is false until an absolute move has placed the tool; the
	// start G-code is free text, so where it leaves the tool is unknown.
	Positioned bool

	firstLayerHeight float64
	otherLayerHeight float64
}

// NewState returns a state positioned at start, below the first layer (z = 0, layer 0).
// Use Unposition when the starting XY is not known.
func NewState(start Vec, firstLayerHeight, otherLayerHeight float64) *State {
	return &State{
		Pos:              start,
		Positioned:       true,
		firstLayerHeight: firstLayerHeight,
		otherLayerHeight: otherLayerHeight,
	}
}

// AdvanceLayer moves to the next layer: the first layer uses the first-layer
// height, every later one the standard height. The extruder position restarts at 0.
func (s *State) AdvanceLayer() {
	s.Layer++
	if s.Layer == 1 {
		s.LayerHeight = s.firstLayerHeight
	} else {
		s.LayerHeight = s.otherLayerHeight
	}
	s.Z += s.LayerHeight
	s.E = 0
}

// SetPosition records the XY position reached by the last emitted move.
func (s *State) SetPosition(p Vec) {
	s.Pos = p
	s.Positioned = true
}

// Unposition marks the XY position as unknown until the next absolute move.
func (s *State) Unposition() {
	s.Pos = Vec{}
	s.Positioned = false
}
