package toolpath

import (
	"io"

	"github.com/Simplici0/pagen/internal/settings"
)

// Generator lays out the calibration object: nested skirt loops on the base
// layers, then one pressure advance value per calibration layer.
type Generator struct {
	cfg    settings.Config
	em     *Emitter
	origin Vec
}

// NewGenerator returns a generator for cfg writing G-code to out. The tool
// starts below the first layer at an unknown XY position; every layer opens
// with an absolute travel to the origin.
func NewGenerator(cfg settings.Config, out io.Writer) *Generator {
	cx, cy := cfg.Center()
	state := NewState(Vec{}, cfg.Extrusion.FirstLayerHeight, cfg.Extrusion.OtherLayerHeight)
	state.Unposition()
	em := NewEmitter(out, state, Params{
		LineWidth:        cfg.Printer.NozzleDiameter,
		FilamentDiameter: cfg.Filament.Diameter,
		TravelSpeed:      cfg.Speeds.Travel,
		ZSpeed:           cfg.Speeds.Z,
	})
	return &Generator{
		cfg:    cfg,
		em:     em,
		origin: Vec{X: cx - cfg.Object.Width/2, Y: cy},
	}
}

// Emitter exposes the underlying emitter for surrounding program text.
func (g *Generator) Emitter() *Emitter { return g.em }

// Origin is the left end of the calibration line, where every layer starts.
func (g *Generator) Origin() Vec { return g.origin }

// Skirt prints the base layers. Each layer traces SkirtLoops rectangles, every
// one a nozzle width larger on each side than the previous, and closes each
// rectangle exactly on its start point before stepping outwards.
func (g *Generator) Skirt() error {
	var (
		nozzle = g.cfg.Printer.NozzleDiameter
		width  = g.cfg.Object.Width
		speed  = g.cfg.Speeds.FirstLayer
	)

	for k := 0; k < g.cfg.Object.SkirtLayers; k++ {
		g.em.AdvanceLayer()
		g.em.Comment("-> layer nr=%d", g.em.State().Layer)
		g.em.Move(Segment{Target: g.origin})

		mu := g.multiplier()
		for i := 0; i < g.cfg.Object.SkirtLoops; i++ {
			o := float64(i) * nozzle
			g.line(width+o, 0, speed, mu)
			g.line(0, nozzle+2*o, speed, mu)
			g.line(-width-2*o, 0, speed, mu)
			g.line(0, -nozzle-2*o, speed, mu)
			g.line(o, 0, speed, mu)
			g.travel(0, -nozzle)
		}
	}
	return g.em.Err()
}

// Sweep prints the calibration layers. Every layer sets its pressure advance
// and prints a two-line wall along X whose segments alternate between fast and
// slow speed, so the corners left by each speed change show the effect of the
// value printed on that layer.
func (g *Generator) Sweep() error {
	count := g.cfg.SweepLayers()
	nozzle := g.cfg.Printer.NozzleDiameter
	fast := g.cfg.Speeds.Fast

	for l := 0; l < count; l++ {
		value, err := AdvanceValue(g.cfg.Sweep.Start, g.cfg.Sweep.Finish, l, count)
		if err != nil {
			return err
		}

		g.em.AdvanceLayer()
		g.em.Comment("-> layer nr=%d", g.em.State().Layer)
		g.em.Comment("calibration layer %d, pressure advance: %s", l, formatFloat(value, advancePrecision))
		g.em.Command("M572 D%d S%s", g.cfg.ExtruderIndex(), formatFloat(value, advancePrecision))
		g.em.Move(Segment{Target: g.origin})

		mu := g.multiplier()
		g.motif(1, mu)
		g.line(0, nozzle, fast, mu)
		g.motif(-1, mu)
		g.line(0, -nozzle, fast, mu)

		if err := g.em.Err(); err != nil {
			return err
		}
	}
	return nil
}

// motif prints one line of the calibration wall in direction dir (+1 or -1):
// NumPatterns repetitions of fast half-gap, slow pattern, fast half-gap.
func (g *Generator) motif(dir, mu float64) {
	var (
		obj  = g.cfg.Object
		gap  = obj.Width/float64(obj.NumPatterns) - obj.PatternWidth
		fast = g.cfg.Speeds.Fast
		slow = g.cfg.Speeds.Slow
	)
	for i := 0; i < obj.NumPatterns; i++ {
		g.line(dir*gap/2, 0, fast, mu)
		g.line(dir*obj.PatternWidth, 0, slow, mu)
		g.line(dir*gap/2, 0, fast, mu)
	}
}

func (g *Generator) multiplier() float64 {
	if g.em.State().Layer == 1 {
		return g.cfg.Extrusion.FirstLayerMultiplier
	}
	return g.cfg.Extrusion.OtherLayerMultiplier
}

func (g *Generator) line(dx, dy, speed, mu float64) {
	g.em.Move(Segment{Target: Vec{X: dx, Y: dy}, Relative: true, Speed: speed, Extrude: true, Multiplier: mu})
}

func (g *Generator) travel(dx, dy float64) {
	g.em.Move(Segment{Target: Vec{X: dx, Y: dy}, Relative: true})
}
