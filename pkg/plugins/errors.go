package plugins

import "fmt"

// ConfigError reports an invalid plugin configuration: a file that fails to
// parse, an entry missing required fields, or conflicting declarations within
// a single layer. Resolution never starts while a ConfigError is outstanding.
type ConfigError struct {
	// File is the configuration file the error was found in, when known.
	File string
	// Entry names the offending plugin declaration, when the error is
	// attributable to a single entry.
	Entry string
	// Reason is a human-readable description of what is wrong.
	Reason string
	// Err is the underlying cause, if any.
	Err error
}

func (e *ConfigError) Error() string {
	switch {
	case e.File != "" && e.Entry != "":
		return fmt.Sprintf("plugin config %s: entry %q: %s", e.File, e.Entry, e.Reason)
	case e.File != "":
		return fmt.Sprintf("plugin config %s: %s", e.File, e.Reason)
	default:
		return fmt.Sprintf("plugin config: %s", e.Reason)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func newConfigError(file, entry, reason string, err error) *ConfigError {
	return &ConfigError{File: file, Entry: entry, Reason: reason, Err: err}
}
