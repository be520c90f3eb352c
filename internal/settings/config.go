package settings

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Simplici0/pagen/internal/template"
)

// Printer describes the machine geometry.
type Printer struct {
	BedMinX        float64 `key:"printer_settings.bed_min_x"`
	BedMaxX        float64 `key:"printer_settings.bed_max_x" validate:"gtfield=BedMinX"`
	BedMinY        float64 `key:"printer_settings.bed_min_y"`
	BedMaxY        float64 `key:"printer_settings.bed_max_y" validate:"gtfield=BedMinY"`
	BedMaxZ        float64 `key:"printer_settings.bed_max_z" validate:"gt=0"`
	HomingAxes     string  `key:"printer_settings.homing_axes"`
	ToolIndex      int     `key:"printer_settings.tool_index" validate:"gte=-1"`
	NozzleDiameter float64 `key:"printer_settings.nozzle_diameter" validate:"gt=0"`
}

// Filament holds temperatures and material properties.
type Filament struct {
	FirstLayerExtruderTemp float64 `key:"filament_settings.first_layer_extruder_temp" validate:"gte=0"`
	OtherLayerExtruderTemp float64 `key:"filament_settings.other_layer_extruder_temp" validate:"gte=0"`
	FirstLayerBedTemp      float64 `key:"filament_settings.first_layer_bed_temp" validate:"gte=0"`
	OtherLayerBedTemp      float64 `key:"filament_settings.other_layer_bed_temp" validate:"gte=0"`
	Diameter               float64 `key:"filament_settings.filament_diameter" validate:"gt=0"`
	Density                float64 `key:"filament_settings.density" validate:"gt=0"`
	CostPerKg              float64 `key:"filament_settings.cost_per_kg" validate:"gte=0"`
}

// Extrusion holds per-layer heights and flow multipliers.
type Extrusion struct {
	FirstLayerMultiplier float64 `key:"extrusion_settings.first_layer_extrusion_multiplier" validate:"gt=0"`
	OtherLayerMultiplier float64 `key:"extrusion_settings.other_layer_extrusion_multiplier" validate:"gt=0"`
	FirstLayerHeight     float64 `key:"extrusion_settings.first_layer_height" validate:"gt=0"`
	OtherLayerHeight     float64 `key:"extrusion_settings.other_layer_height" validate:"gt=0"`
}

// Speeds are in mm/s.
type Speeds struct {
	Travel     float64 `key:"speed_settings.travel_speed" validate:"gt=0"`
	FirstLayer float64 `key:"speed_settings.first_layer_speed" validate:"gt=0"`
	Slow       float64 `key:"speed_settings.slow_speed" validate:"gt=0"`
	Fast       float64 `key:"speed_settings.fast_speed" validate:"gt=0"`
	Z          float64 `key:"speed_settings.z_speed" validate:"gt=0"`
}

// Object describes the calibration object.
type Object struct {
	Width        float64 `key:"object_settings.width" validate:"gt=0"`
	Height       float64 `key:"object_settings.height" validate:"gte=0"`
	Layers       int     `key:"object_settings.layers" validate:"gte=0"`
	NumPatterns  int     `key:"object_settings.num_patterns" validate:"gte=1"`
	PatternWidth float64 `key:"object_settings.pattern_width" validate:"gt=0"`
	SkirtLoops   int     `key:"object_settings.skirt_loops" validate:"gte=1"`
	SkirtLayers  int     `key:"object_settings.skirt_layers" validate:"gte=1"`
}

// Sweep is the pressure advance range covered by the calibration layers.
type Sweep struct {
	Start  float64 `key:"pressure_advance_settings.start"`
	Finish float64 `key:"pressure_advance_settings.finish"`
}

// Config is an immutable, validated snapshot of a settings document.
type Config struct {
	Printer   Printer
	Filament  Filament
	Extrusion Extrusion
	Speeds    Speeds
	Object    Object
	Sweep     Sweep

	StartGCode string
	EndGCode   string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report dotted key paths instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("key")
	})
	return v
}

// Resolve reads every entry the generator needs from doc and validates the result.
// Any failure is a *ConfigError naming the offending key path.
func Resolve(doc *Document) (Config, error) {
	r := &reader{doc: doc}
	cfg := Config{
		Printer: Printer{
			BedMinX:        r.number("printer_settings.bed_min_x"),
			BedMaxX:        r.number("printer_settings.bed_max_x"),
			BedMinY:        r.number("printer_settings.bed_min_y"),
			BedMaxY:        r.number("printer_settings.bed_max_y"),
			BedMaxZ:        r.number("printer_settings.bed_max_z"),
			HomingAxes:     r.text("printer_settings.homing_axes"),
			ToolIndex:      r.integer("printer_settings.tool_index"),
			NozzleDiameter: r.number("printer_settings.nozzle_diameter"),
		},
		Filament: Filament{
			FirstLayerExtruderTemp: r.number("filament_settings.first_layer_extruder_temp"),
			OtherLayerExtruderTemp: r.number("filament_settings.other_layer_extruder_temp"),
			FirstLayerBedTemp:      r.number("filament_settings.first_layer_bed_temp"),
			OtherLayerBedTemp:      r.number("filament_settings.other_layer_bed_temp"),
			Diameter:               r.number("filament_settings.filament_diameter"),
			Density:                r.number("filament_settings.density"),
			CostPerKg:              r.number("filament_settings.cost_per_kg"),
		},
		Extrusion: Extrusion{
			FirstLayerMultiplier: r.number("extrusion_settings.first_layer_extrusion_multiplier"),
			OtherLayerMultiplier: r.number("extrusion_settings.other_layer_extrusion_multiplier"),
			FirstLayerHeight:     r.number("extrusion_settings.first_layer_height"),
			OtherLayerHeight:     r.number("extrusion_settings.other_layer_height"),
		},
		Speeds: Speeds{
			Travel:     r.number("speed_settings.travel_speed"),
			FirstLayer: r.number("speed_settings.first_layer_speed"),
			Slow:       r.number("speed_settings.slow_speed"),
			Fast:       r.number("speed_settings.fast_speed"),
			Z:          r.number("speed_settings.z_speed"),
		},
		Object: Object{
			Width:        r.number("object_settings.width"),
			Height:       r.number("object_settings.height"),
			Layers:       r.integer("object_settings.layers"),
			NumPatterns:  r.integer("object_settings.num_patterns"),
			PatternWidth: r.number("object_settings.pattern_width"),
			SkirtLoops:   r.integer("object_settings.skirt_loops"),
			SkirtLayers:  r.integer("object_settings.skirt_layers"),
		},
		Sweep: Sweep{
			Start:  r.number("pressure_advance_settings.start"),
			Finish: r.number("pressure_advance_settings.finish"),
		},
		StartGCode: doc.StartGCode,
		EndGCode:   doc.EndGCode,
	}
	if r.err != nil {
		return Config{}, r.err
	}
	for _, text := range []string{doc.StartGCode, doc.EndGCode} {
		for _, ref := range template.References(text) {
			if _, err := doc.Lookup(ref); err != nil {
				return Config{}, err
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks single-field bounds through struct tags, then the relations
// between fields that keep the toolpath arithmetic well defined.
func (c Config) Validate() error {
	if err := checkFinite(reflect.ValueOf(c)); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return configErrorf(fe.Field(), "must satisfy %s", describeRule(fe))
		}
		return fmt.Errorf("validate settings: %w", err)
	}

	if float64(c.Object.NumPatterns)*c.Object.PatternWidth > c.Object.Width {
		return configErrorf("object_settings.pattern_width",
			"%d patterns of %g mm do not fit in an object %g mm wide",
			c.Object.NumPatterns, c.Object.PatternWidth, c.Object.Width)
	}

	if n := c.SweepLayers(); n < 2 {
		path := "object_settings.height"
		if c.Object.Layers > 0 {
			path = "object_settings.layers"
		}
		return configErrorf(path, "calibration needs at least 2 layers, got %d", n)
	}

	if z := c.FinalZ(); z > c.Printer.BedMaxZ {
		return configErrorf("object_settings.height", "object reaches z=%g, above bed_max_z=%g", z, c.Printer.BedMaxZ)
	}

	margin := float64(c.Object.SkirtLoops) * c.Printer.NozzleDiameter
	cx, cy := c.Center()
	halfX := c.Object.Width/2 + margin
	if cx-halfX < c.Printer.BedMinX || cx+halfX > c.Printer.BedMaxX {
		return configErrorf("object_settings.width", "object and skirt do not fit on the bed")
	}
	if cy-margin < c.Printer.BedMinY || cy+margin+c.Printer.NozzleDiameter > c.Printer.BedMaxY {
		return configErrorf("object_settings.skirt_loops", "skirt does not fit on the bed")
	}

	return nil
}

// checkFinite rejects NaN and infinite values in every keyed float field.
// Tags like gt=0 accept +Inf, which would end up as "F+Inf" in the output.
func checkFinite(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f, fv := t.Field(i), v.Field(i)
		switch fv.Kind() {
		case reflect.Struct:
			if err := checkFinite(fv); err != nil {
				return err
			}
		case reflect.Float64:
			x := fv.Float()
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return configErrorf(f.Tag.Get("key"), "must be a finite number")
			}
		}
	}
	return nil
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "> " + fe.Param()
	case "gte":
		return ">= " + fe.Param()
	case "gtfield":
		return "greater than " + siblingKey(fe)
	default:
		return fe.Tag() + " " + fe.Param()
	}
}

// siblingKey maps the Go field name a cross-field rule refers to onto its
// dotted key path.
func siblingKey(fe validator.FieldError) string {
	t := reflect.TypeOf(Config{})
	parts := strings.Split(fe.StructNamespace(), ".")
	for _, name := range parts[1 : len(parts)-1] {
		f, ok := t.FieldByName(name)
		if !ok {
			return fe.Param()
		}
		t = f.Type
	}
	if f, ok := t.FieldByName(fe.Param()); ok {
		if key := f.Tag.Get("key"); key != "" {
			return key
		}
	}
	return fe.Param()
}

// SweepLayers is the number of calibration layers: the explicit layer count when
// set, otherwise the calibration height divided by the layer height.
func (c Config) SweepLayers() int {
	if c.Object.Layers > 0 {
		return c.Object.Layers
	}
	// Tolerate binary rounding of e.g. 15/0.2.
	return int(math.Floor(c.Object.Height/c.Extrusion.OtherLayerHeight + 1e-9))
}

// TotalLayers counts base and calibration layers.
func (c Config) TotalLayers() int {
	return c.Object.SkirtLayers + c.SweepLayers()
}

// FinalZ is the nozzle height of the last printed layer.
func (c Config) FinalZ() float64 {
	return c.Extrusion.FirstLayerHeight + float64(c.TotalLayers()-1)*c.Extrusion.OtherLayerHeight
}

// Center is the middle of the bed, where the object is centred.
func (c Config) Center() (x, y float64) {
	return (c.Printer.BedMinX + c.Printer.BedMaxX) / 2, (c.Printer.BedMinY + c.Printer.BedMaxY) / 2
}

// ExtruderIndex is the extruder addressed by M572. Printers without a tool
// changer use -1 for tool_index, which maps to extruder 0.
func (c Config) ExtruderIndex() int {
	if c.Printer.ToolIndex < 0 {
		return 0
	}
	return c.Printer.ToolIndex
}

// reader pulls typed values out of a document and remembers the first failure.
type reader struct {
	doc *Document
	err error
}

func (r *reader) lookup(path string) any {
	if r.err != nil {
		return nil
	}
	v, err := r.doc.Lookup(path)
	if err != nil {
		r.err = err
		return nil
	}
	return v
}

func (r *reader) number(path string) float64 {
	v := r.lookup(path)
	if r.err != nil {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		r.err = configErrorf(path, "expected a number, got %q", FormatValue(v))
		return 0
	}
	return f
}

func (r *reader) integer(path string) int {
	f := r.number(path)
	if r.err != nil {
		return 0
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		r.err = configErrorf(path, "expected a whole number, got %g", f)
		return 0
	}
	return int(f)
}

func (r *reader) text(path string) string {
	v := r.lookup(path)
	if r.err != nil {
		return ""
	}
	return strings.TrimSpace(FormatValue(v))
}
