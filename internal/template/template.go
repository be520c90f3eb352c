// Package template expands [group.key] references in G-code preamble and postamble text.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

// Resolver looks up a dotted key path. *settings.Document satisfies it.
type Resolver interface {
	Lookup(path string) (any, error)
}

// Formatter renders a resolved value as text.
type Formatter func(v any) string

var reference = regexp.MustCompile(`\[([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)+)\]`)

// References lists the key paths referenced by text, in order of appearance.
func References(text string) []string {
	var paths []string
	for _, m := range reference.FindAllStringSubmatch(text, -1) {
		paths = append(paths, m[1])
	}
	return paths
}

// Expand replaces every [group.key] reference in text with its resolved value.
// Brackets that do not hold a dotted path are left as they are. The first
// unresolvable reference aborts expansion; the returned error wraps the
// resolver's error and names the line it was found on.
func Expand(text string, r Resolver, format Formatter) (string, error) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		var firstErr error
		lines[i] = reference.ReplaceAllStringFunc(line, func(match string) string {
			if firstErr != nil {
				return match
			}
			v, err := r.Lookup(match[1 : len(match)-1])
			if err != nil {
				firstErr = err
				return match
			}
			return format(v)
		})
		if firstErr != nil {
			return "", fmt.Errorf("template line %d: %w", i+1, firstErr)
		}
	}
	return strings.Join(lines, "\n"), nil
}
