package settings

import (
	"sort"
	"strconv"
	"strings"
)

// Entry is a single tunable value with its human-readable description.
// Value holds either a float64 or a string.
type Entry struct {
	Key         string
	Value       any
	Description string
}

// Group is a named set of entries, e.g. "printer_settings".
type Group struct {
	Name    string
	Entries []Entry
}

// Document is the settings tree the generator is driven by. Groups keep a stable
// order so that saving the same document twice produces identical bytes.
type Document struct {
	Groups     []Group
	StartGCode string
	EndGCode   string
}

// Group returns the group with the given name, or nil.
func (d *Document) Group(name string) *Group {
	for i := range d.Groups {
		if d.Groups[i].Name == name {
			return &d.Groups[i]
		}
	}
	return nil
}

func (g *Group) entry(key string) *Entry {
	for i := range g.Entries {
		if g.Entries[i].Key == key {
			return &g.Entries[i]
		}
	}
	return nil
}

func splitPath(path string) (group, key string, err error) {
	group, key, ok := strings.Cut(path, ".")
	if !ok || group == "" || key == "" || strings.Contains(key, ".") {
		return "", "", configErrorf(path, "key path must have the form group.key")
	}
	return group, key, nil
}

// Lookup resolves a dotted group.key path to its value.
func (d *Document) Lookup(path string) (any, error) {
	groupName, key, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	g := d.Group(groupName)
	if g == nil {
		return nil, configErrorf(path, "unknown group %q", groupName)
	}
	e := g.entry(key)
	if e == nil {
		return nil, configErrorf(path, "unknown key %q in group %q", key, groupName)
	}
	return e.Value, nil
}

// Set overwrites (or creates) the entry at path. A description already present is kept.
func (d *Document) Set(path string, value any) error {
	groupName, key, err := splitPath(path)
	if err != nil {
		return err
	}
	switch value.(type) {
	case float64, string:
	default:
		return configErrorf(path, "unsupported value type %T", value)
	}

	g := d.Group(groupName)
	if g == nil {
		d.Groups = append(d.Groups, Group{Name: groupName})
		g = &d.Groups[len(d.Groups)-1]
	}
	if e := g.entry(key); e != nil {
		e.Value = value
		return nil
	}
	g.Entries = append(g.Entries, Entry{Key: key, Value: value})
	return nil
}

// SetString parses raw as a number when possible and stores it at path.
// It backs the "--set group.key=value" override of the CLI.
func (d *Document) SetString(path, raw string) error {
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return d.Set(path, f)
	}
	return d.Set(path, raw)
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{StartGCode: d.StartGCode, EndGCode: d.EndGCode}
	out.Groups = make([]Group, len(d.Groups))
	for i, g := range d.Groups {
		out.Groups[i] = Group{Name: g.Name, Entries: append([]Entry(nil), g.Entries...)}
	}
	return out
}

// normalize orders groups and entries by the reference layout; anything the
// reference does not know about is kept and appended in sorted order.
func (d *Document) normalize() {
	groupRank := make(map[string]int, len(reference))
	keyRank := make(map[string]map[string]int, len(reference))
	for i, g := range reference {
		groupRank[g.name] = i
		keyRank[g.name] = make(map[string]int, len(g.entries))
		for j, e := range g.entries {
			keyRank[g.name][e.key] = j
		}
	}

	less := func(m map[string]int, a, b string) bool {
		ra, oka := m[a]
		rb, okb := m[b]
		switch {
		case oka && okb:
			return ra < rb
		case oka != okb:
			return oka
		default:
			return a < b
		}
	}

	sort.SliceStable(d.Groups, func(i, j int) bool {
		return less(groupRank, d.Groups[i].Name, d.Groups[j].Name)
	})
	for i := range d.Groups {
		g := &d.Groups[i]
		ranks := keyRank[g.Name]
		sort.SliceStable(g.Entries, func(a, b int) bool {
			return less(ranks, g.Entries[a].Key, g.Entries[b].Key)
		})
	}
}

// FormatValue renders a settings value the way it is substituted into G-code templates.
func FormatValue(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return ""
	}
}
