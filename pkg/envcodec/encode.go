package envcodec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stanzabuild/stanza/pkg/plugins"
	"github.com/stanzabuild/stanza/pkg/resolve"
)

// Prefix is the fixed variable-name prefix of the environment protocol.
const Prefix = "HASKELL_PLUGINS_"

// EncodingError reports a value that cannot be represented in the protocol.
type EncodingError struct {
	Namespace  string
	EntryPoint string
	Reason     string
}

func (e *EncodingError) Error() string {
	if e.EntryPoint != "" {
		return fmt.Sprintf("cannot encode namespace %q: entry point %q: %s", e.Namespace, e.EntryPoint, e.Reason)
	}
	return fmt.Sprintf("cannot encode namespace %q: %s", e.Namespace, e.Reason)
}

// VariableName derives the environment variable name for a namespace.
func VariableName(namespace string) string {
	return Prefix + strings.ToUpper(namespace)
}

// Encoding is the complete set of plugin environment variables for one
// invocation. It is built once per eligible invocation and read-only after.
type Encoding struct {
	names []string
	vars  map[string]string
}

// Environ returns the variables as "NAME=value" entries, sorted by name.
func (e *Encoding) Environ() []string {
	entries := make([]string, 0, len(e.names))
	for _, name := range e.names {
		entries = append(entries, name+"="+e.vars[name])
	}
	return entries
}

// Lookup returns a variable's value by name.
func (e *Encoding) Lookup(name string) (string, bool) {
	value, ok := e.vars[name]
	return value, ok
}

// Vars returns a copy of the variable map.
func (e *Encoding) Vars() map[string]string {
	out := make(map[string]string, len(e.vars))
	for name, value := range e.vars {
		out[name] = value
	}
	return out
}

// Len returns the number of variables.
func (e *Encoding) Len() int {
	return len(e.names)
}

// Empty reports whether the encoding carries no variables.
func (e *Encoding) Empty() bool {
	return len(e.names) == 0
}

// Encode serializes a resolution snapshot. Namespaces with no resolved
// plugins are absent from the result, not present with an empty value.
func Encode(snapshot *resolve.Snapshot) (*Encoding, error) {
	enc := &Encoding{vars: make(map[string]string)}
	if snapshot == nil {
		return enc, nil
	}

	producedBy := make(map[string]string)
	for _, namespace := range snapshot.Namespaces() {
		packages := snapshot.Packages(namespace)
		if len(packages) == 0 {
			continue
		}

		if !plugins.ValidNamespace(namespace) {
			return nil, &EncodingError{
				Namespace: namespace,
				Reason:    "not a valid environment variable suffix",
			}
		}

		entryPoints := make([]string, 0, len(packages))
		for _, p := range packages {
			if strings.Contains(p.EntryPoint, plugins.EntryPointDelimiter) {
				return nil, &EncodingError{
					Namespace:  namespace,
					EntryPoint: p.EntryPoint,
					Reason:     fmt.Sprintf("contains the delimiter %q", plugins.EntryPointDelimiter),
				}
			}
			entryPoints = append(entryPoints, p.EntryPoint)
		}

		name := VariableName(namespace)
		if prev, taken := producedBy[name]; taken {
			return nil, &EncodingError{
				Namespace: namespace,
				Reason:    fmt.Sprintf("variable %s is already produced by namespace %q", name, prev),
			}
		}
		producedBy[name] = namespace

		enc.vars[name] = strings.Join(entryPoints, plugins.EntryPointDelimiter)
		enc.names = append(enc.names, name)
	}
	sort.Strings(enc.names)

	return enc, nil
}
