package toolpath

import (
	"fmt"
	"io"
	"strings"

	"github.com/Simplici0/pagen/internal/extrusion"
)

// Segment is one requested motion. Speed is in mm/s; a zero speed is a travel move.
type Segment struct {
	Target     Vec
	Relative   bool
	Speed      float64
	Extrude    bool
	Multiplier float64
}

// Params are the machine constants the emitter needs for every move.
type Params struct {
	LineWidth        float64
	FilamentDiameter float64
	TravelSpeed      float64
	ZSpeed           float64
}

// Stats accumulates totals over everything emitted.
type Stats struct {
	Filament float64 // mm of filament fed
	Seconds  float64 // motion time at nominal speed, no acceleration
	Moves    int
	Layers   int
}

// Emitter turns segments into G-code lines and keeps State in step with them.
// The first error (extrusion domain or write failure) is sticky; later calls
// are no-ops and Err reports it.
type Emitter struct {
	out    io.Writer
	state  *State
	params Params
	stats  Stats
	err    error
}

// NewEmitter returns an emitter writing to out and tracking state.
func NewEmitter(out io.Writer, state *State, params Params) *Emitter {
	return &Emitter{out: out, state: state, params: params}
}

// State returns the tracked machine state.
func (e *Emitter) State() *State { return e.state }

// Stats returns the totals so far.
func (e *Emitter) Stats() Stats { return e.stats }

// Err returns the first error encountered.
func (e *Emitter) Err() error { return e.err }

// Move emits a single G1 for seg and updates the tracked position.
func (e *Emitter) Move(seg Segment) {
	if e.err != nil {
		return
	}

	from := e.state.Pos
	to := seg.Target
	if seg.Relative {
		to = from.Add(seg.Target)
	}
	length := from.Dist(to)
	if !e.state.Positioned {
		if seg.Relative || seg.Extrude {
			e.err = fmt.Errorf("layer %d: relative or extruding move before the tool position is known", e.state.Layer)
			return
		}
		// Distance from wherever the start G-code left the tool is unknown.
		length = 0
	}

	if seg.Extrude && seg.Speed > 0 {
		feed, err := extrusion.FeedLength(length, e.params.LineWidth, e.state.LayerHeight, e.params.FilamentDiameter, seg.Multiplier)
		if err != nil {
			e.err = fmt.Errorf("layer %d move to (%g, %g): %w", e.state.Layer, to.X, to.Y, err)
			return
		}
		e.state.E += feed
		e.stats.Filament += feed
		e.linef("G1 X%s Y%s E%s F%s",
			formatFloat(to.X, axisPrecision),
			formatFloat(to.Y, axisPrecision),
			formatFloat(e.state.E, extrudePrecision),
			feedrate(seg.Speed))
		e.account(length, seg.Speed)
	} else {
		speed := seg.Speed
		if speed <= 0 {
			speed = e.params.TravelSpeed
		}
		e.linef("G1 X%s Y%s F%s",
			formatFloat(to.X, axisPrecision),
			formatFloat(to.Y, axisPrecision),
			feedrate(speed))
		e.account(length, speed)
	}

	e.state.SetPosition(to)
	e.stats.Moves++
}

// AdvanceLayer moves the state to the next layer and emits the extruder reset and Z move.
func (e *Emitter) AdvanceLayer() {
	if e.err != nil {
		return
	}
	e.state.AdvanceLayer()
	e.stats.Layers++
	e.linef("G92 E0")
	e.linef("G1 Z%s F%s", formatFloat(e.state.Z, axisPrecision), feedrate(e.params.ZSpeed))
	e.account(e.state.LayerHeight, e.params.ZSpeed)
}

// Comment emits a ";" comment line.
func (e *Emitter) Comment(format string, args ...any) {
	e.linef("; "+format, args...)
}

// Command emits a raw command line.
func (e *Emitter) Command(format string, args ...any) {
	e.linef(format, args...)
}

// Block emits pre-rendered text, one command per line, without touching the state.
func (e *Emitter) Block(text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		e.linef("%s", strings.TrimRight(line, " \t\r"))
	}
}

// Blank emits an empty line.
func (e *Emitter) Blank() {
	e.linef("")
}

func (e *Emitter) linef(format string, args ...any) {
	if e.err != nil {
		return
	}
	if _, err := fmt.Fprintf(e.out, format+"\n", args...); err != nil {
		e.err = fmt.Errorf("write gcode: %w", err)
	}
}

func (e *Emitter) account(length, speed float64) {
	if speed > 0 {
		e.stats.Seconds += length / speed
	}
}

// feedrate converts mm/s to the mm/min F word.
func feedrate(speed float64) string {
	return formatFloat(speed*60, feedratePrecision)
}
