package settings

import "fmt"

// ConfigError reports a settings value that is missing, unresolvable or out of range.
// Path is the dotted key path of the offending entry (e.g. "filament_settings.filament_diameter").
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Path, e.Reason)
}

func configErrorf(path, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
