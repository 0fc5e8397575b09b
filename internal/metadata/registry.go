// Package metadata extracts lightweight per-file metadata keyed by MIME
// type prefix.
package metadata

import (
	"fmt"
	"strings"
)

// ErrorKey tags a metadata value produced by a failed extractor.
const ErrorKey = "_extractor_error"

// Extractor produces a structured metadata value for the file at path.
// Implementations report their own failures inside the returned value
// (see ErrorValue); they never return a Go error and never log.
type Extractor func(path string) map[string]any

// ErrorValue wraps an extractor failure as a self-describing metadata
// value.
func ErrorValue(err error) map[string]any {
	return map[string]any{ErrorKey: err.Error()}
}

type entry struct {
	prefix string
	fn     Extractor
}

// Registry maps MIME-type prefixes to extractors. Prefixes are tried in
// registration order and the first match wins. Build one at startup and
// pass it to the agent; there is no package-level registration.
type Registry struct {
	entries []entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds an extractor for MIME types starting with prefix and
// returns the registry for chaining.
func (r *Registry) Register(prefix string, fn Extractor) *Registry {
	r.entries = append(r.entries, entry{prefix: prefix, fn: fn})
	return r
}

// Extract runs the first extractor whose prefix matches mimeType. No
// matching prefix yields an empty value. A panicking extractor is
// recovered into an error-tagged value so one bad parser cannot sink a
// file.
func (r *Registry) Extract(mimeType, path string) (out map[string]any) {
	for _, e := range r.entries {
		if strings.HasPrefix(mimeType, e.prefix) {
			defer func() {
				if p := recover(); p != nil {
					out = map[string]any{ErrorKey: fmt.Sprint(p)}
				}
			}()
			return e.fn(path)
		}
	}
	return map[string]any{}
}
