package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the on-disk encoding of a settings document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const (
	startGCodeKey       = "start_gcode"
	endGCodeKey         = "end_gcode"
	legacyStartGCodeKey = "start_gcode_default"
	legacyEndGCodeKey   = "end_gcode_default"
)

// ParseFormat maps a user supplied name ("json", "yaml", "yml") to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown settings format %q", name)
	}
}

// FormatForPath picks the encoding from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads and decodes a settings document from disk.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	doc, err := Decode(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

// Decode parses a settings document. Each entry may be either a
// [value, "description"] pair, as written by Encode, or a bare value.
func Decode(data []byte, format Format) (*Document, error) {
	var tree map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown settings format %q", format)
	}
	return fromTree(tree)
}

func fromTree(tree map[string]any) (*Document, error) {
	doc := &Document{}

	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw := tree[name]
		switch name {
		case startGCodeKey, legacyStartGCodeKey, endGCodeKey, legacyEndGCodeKey:
			text, ok := raw.(string)
			if !ok {
				return nil, configErrorf(name, "expected a string, got %T", raw)
			}
			if name == startGCodeKey || name == legacyStartGCodeKey {
				if doc.StartGCode == "" || name == startGCodeKey {
					doc.StartGCode = text
				}
			} else if doc.EndGCode == "" || name == endGCodeKey {
				doc.EndGCode = text
			}
			continue
		}

		entries, ok := raw.(map[string]any)
		if !ok {
			return nil, configErrorf(name, "expected a group of settings, got %T", raw)
		}
		group := Group{Name: name, Entries: make([]Entry, 0, len(entries))}
		for key, v := range entries {
			entry, err := decodeEntry(name+"."+key, v)
			if err != nil {
				return nil, err
			}
			entry.Key = key
			group.Entries = append(group.Entries, entry)
		}
		doc.Groups = append(doc.Groups, group)
	}

	doc.normalize()
	return doc, nil
}

func decodeEntry(path string, raw any) (Entry, error) {
	var entry Entry
	if pair, ok := raw.([]any); ok {
		if len(pair) == 0 || len(pair) > 2 {
			return entry, configErrorf(path, "expected [value, description], got %d elements", len(pair))
		}
		raw = pair[0]
		if len(pair) == 2 {
			desc, ok := pair[1].(string)
			if !ok {
				return entry, configErrorf(path, "description must be a string")
			}
			entry.Description = desc
		}
	}

	v, err := scalar(path, raw)
	if err != nil {
		return entry, err
	}
	entry.Value = v
	return entry, nil
}

func scalar(path string, raw any) (any, error) {
	switch t := raw.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case string:
		return t, nil
	default:
		return nil, configErrorf(path, "unsupported value type %T", raw)
	}
}

// WithDefaults fills every reference entry the document lacks with its factory
// default, so files written by older versions keep working.
func WithDefaults(doc *Document) *Document {
	out := doc.Clone()
	for _, g := range reference {
		for _, e := range g.entries {
			path := g.name + "." + e.key
			if _, err := out.Lookup(path); err == nil {
				continue
			}
			_ = out.Set(path, e.value)
			out.Group(g.name).entry(e.key).Description = e.description
		}
	}
	if strings.TrimSpace(out.StartGCode) == "" {
		out.StartGCode = DefaultStartGCode
	}
	if strings.TrimSpace(out.EndGCode) == "" {
		out.EndGCode = DefaultEndGCode
	}
	out.normalize()
	return out
}

// Encode writes the document in the requested format. Output is deterministic.
func Encode(w io.Writer, doc *Document, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(doc, "", "    ")
		data = append(data, '\n')
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(doc.yamlNode()); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	default:
		return fmt.Errorf("unknown settings format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// MarshalJSON keeps the reference key order instead of sorting map keys.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range d.Groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONKey(&buf, g.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, e := range g.Entries {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONKey(&buf, e.Key); err != nil {
				return nil, err
			}
			pair, err := json.Marshal([]any{e.Value, e.Description})
			if err != nil {
				return nil, err
			}
			buf.Write(pair)
		}
		buf.WriteByte('}')
	}
	for _, kv := range [][2]string{{startGCodeKey, d.StartGCode}, {endGCodeKey, d.EndGCode}} {
		if len(d.Groups) > 0 || kv[0] == endGCodeKey {
			buf.WriteByte(',')
		}
		if err := writeJSONKey(&buf, kv[0]); err != nil {
			return nil, err
		}
		text, err := json.Marshal(kv[1])
		if err != nil {
			return nil, err
		}
		buf.Write(text)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONKey(buf *bytes.Buffer, key string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}

func (d *Document) yamlNode() *yaml.Node {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, g := range d.Groups {
		group := &yaml.Node{Kind: yaml.MappingNode}
		for _, e := range g.Entries {
			pair := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
			desc := scalarNode(e.Description)
			desc.Style = yaml.DoubleQuotedStyle
			pair.Content = append(pair.Content, scalarNode(e.Value), desc)
			group.Content = append(group.Content, scalarNode(e.Key), pair)
		}
		root.Content = append(root.Content, scalarNode(g.Name), group)
	}
	root.Content = append(root.Content,
		scalarNode(startGCodeKey), literalNode(d.StartGCode),
		scalarNode(endGCodeKey), literalNode(d.EndGCode),
	)
	return root
}

func scalarNode(v any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch t := v.(type) {
	case float64:
		n.Tag = "!!float"
		n.Value = FormatValue(t)
		if !strings.ContainsAny(n.Value, ".eE") {
			n.Tag = "!!int"
		}
	case string:
		n.Tag = "!!str"
		n.Value = t
	}
	return n
}

func literalNode(text string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.LiteralStyle, Value: text}
}
