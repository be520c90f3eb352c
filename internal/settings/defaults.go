package settings

type entryRef struct {
	key         string
	value       any
	description string
}

type groupRef struct {
	name    string
	entries []entryRef
}

// reference is the canonical layout of a settings document and the factory defaults.
var reference = []groupRef{
	{name: "printer_settings", entries: []entryRef{
		{"bed_min_x", 0.0, "Bed minimum x in mm, usually 0"},
		{"bed_max_x", 300.0, "Bed maximum x in mm, usually width of bed"},
		{"bed_min_y", 0.0, "Bed minimum y in mm, usually 0"},
		{"bed_max_y", 300.0, "Bed maximum y in mm, usually depth of bed"},
		{"bed_max_z", 300.0, "Bed maximum z in mm"},
		{"homing_axes", "X Y Z", "Axes to home"},
		{"tool_index", -1.0, "-1 if not a tool changer, otherwise tool number to use"},
		{"nozzle_diameter", 0.4, "Diameter of nozzle in mm"},
	}},
	{name: "filament_settings", entries: []entryRef{
		{"first_layer_extruder_temp", 220.0, "Extruder temperature in C for first layer"},
		{"other_layer_extruder_temp", 210.0, "Extruder temperature in C"},
		{"first_layer_bed_temp", 60.0, "Bed temperature in C for first layer"},
		{"other_layer_bed_temp", 60.0, "Bed temperature in C"},
		{"filament_diameter", 1.75, "Diameter of filament in mm"},
		{"density", 1.24, "Filament density in g/cm3, used for the weight estimate"},
		{"cost_per_kg", 20.0, "Filament cost per kg, used for the cost estimate"},
	}},
	{name: "extrusion_settings", entries: []entryRef{
		{"first_layer_extrusion_multiplier", 2.0, "Extrusion multiplier for first layer"},
		{"other_layer_extrusion_multiplier", 1.0, "Extrusion multiplier"},
		{"first_layer_height", 0.35, "First layer height in mm"},
		{"other_layer_height", 0.2, "Layer height in mm"},
	}},
	{name: "speed_settings", entries: []entryRef{
		{"travel_speed", 200.0, "Travel speed in mm/s"},
		{"first_layer_speed", 15.0, "First layer speed in mm/s"},
		{"slow_speed", 15.0, "Slowest print move during calibration in mm/s"},
		{"fast_speed", 100.0, "Fastest print move during calibration in mm/s"},
		{"z_speed", 100.0, "Z move speed on layer change in mm/s"},
	}},
	{name: "object_settings", entries: []entryRef{
		{"width", 100.0, "Object width in mm"},
		{"height", 15.0, "Height of the calibration region in mm"},
		{"layers", 0.0, "Calibration layer count, 0 to derive it from height"},
		{"num_patterns", 4.0, "Number of slow segments per line"},
		{"pattern_width", 5.0, "Length of each slow segment in mm"},
		{"skirt_loops", 5.0, "Nested skirt loops per base layer"},
		{"skirt_layers", 2.0, "Number of base layers"},
	}},
	{name: "pressure_advance_settings", entries: []entryRef{
		{"start", 0.0, "Pressure advance starting value"},
		{"finish", 0.3, "Pressure advance final value"},
	}},
}

// DefaultStartGCode is the preamble template used when a document does not carry one.
const DefaultStartGCode = `G90 ; use absolute coordinates
M82 ; use absolute extruder moves
M106 S0 ; turn off part cooling fan
M140 S[filament_settings.first_layer_bed_temp] ; set bed temp
M190 S[filament_settings.first_layer_bed_temp] ; wait for bed temp
M104 S[filament_settings.first_layer_extruder_temp] ; set extruder temp
M109 S[filament_settings.first_layer_extruder_temp] ; wait for extruder temp
G28 [printer_settings.homing_axes]
G1 X[printer_settings.bed_min_x] Y[printer_settings.bed_min_y] Z5 F3000
G92 E0 ; reset extruder position
G1 Z0.35 F1000
G91 ; prime nozzle with a short line
G1 Y50 E12 F1000
G90
G92 E0`

// DefaultEndGCode is the postamble template used when a document does not carry one.
const DefaultEndGCode = `M140 S0 ; turn off bed
M104 S0 ; turn off extruder
G91
G1 E-2 F1800 ; retract
G1 Z5 F3000 ; raise nozzle
G90
G1 X[printer_settings.bed_min_x] Y[printer_settings.bed_max_y] F3000 ; park`

// Default returns a fresh document populated with the factory defaults.
func Default() *Document {
	doc := &Document{
		Groups:     make([]Group, 0, len(reference)),
		StartGCode: DefaultStartGCode,
		EndGCode:   DefaultEndGCode,
	}
	for _, g := range reference {
		group := Group{Name: g.name, Entries: make([]Entry, 0, len(g.entries))}
		for _, e := range g.entries {
			group.Entries = append(group.Entries, Entry{Key: e.key, Value: e.value, Description: e.description})
		}
		doc.Groups = append(doc.Groups, group)
	}
	return doc
}
