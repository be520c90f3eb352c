package toolpath

import (
	"strconv"
	"strings"
)

// Output precision per G-code word.
const (
	axisPrecision     = 3
	extrudePrecision  = 5
	feedratePrecision = 0
	advancePrecision  = 4
)

// formatFloat renders f with at most p decimals, dropping trailing zeros.
func formatFloat(f float64, p int) string {
	s := strconv.FormatFloat(f, 'f', p, 64)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}
