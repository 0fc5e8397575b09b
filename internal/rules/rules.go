// Package rules implements the declarative retrieval rules a scanned
// file is tested against.
//
// Metadata matching is intentionally loose: the metadata value is
// serialized to JSON and every configured substring is searched for in
// that blob, case-insensitively. A substring can therefore match a
// nested field it was not aimed at. This mirrors the behavior audit
// consumers already depend on; tighten only with a schema change.
package rules

import (
	"encoding/json"
	"strings"
)

// Rule decides whether an identified file is interesting. The Name is
// unique within a configuration and doubles as the destination bucket
// directory. A rule with no predicates configured matches every file;
// that is documented behavior, not an error.
type Rule struct {
	Name             string
	MIMEPrefix       string
	Extensions       map[string]struct{}
	MetadataContains map[string]string
}

// New constructs an immutable rule, lower-casing the extension set.
func New(name, mimePrefix string, extensions []string, metadataContains map[string]string) Rule {
	r := Rule{Name: name, MIMEPrefix: mimePrefix, MetadataContains: metadataContains}
	if len(extensions) > 0 {
		r.Extensions = make(map[string]struct{}, len(extensions))
		for _, e := range extensions {
			r.Extensions[strings.ToLower(e)] = struct{}{}
		}
	}
	return r
}

// Matches reports whether a file with the given MIME type, extension,
// and extracted metadata satisfies every configured predicate.
func (r Rule) Matches(mimeType, ext string, metadata map[string]any) bool {
	if r.MIMEPrefix != "" && !strings.HasPrefix(mimeType, r.MIMEPrefix) {
		return false
	}
	if len(r.Extensions) > 0 {
		if _, ok := r.Extensions[strings.ToLower(ext)]; !ok {
			return false
		}
	}
	if len(r.MetadataContains) > 0 {
		blob, err := json.Marshal(metadata)
		if err != nil {
			return false
		}
		haystack := strings.ToLower(string(blob))
		for _, want := range r.MetadataContains {
			if !strings.Contains(haystack, strings.ToLower(want)) {
				return false
			}
		}
	}
	return true
}

// FirstMatch evaluates rs in order and returns the first matching rule,
// or nil. A file lands in at most one rule's bucket per run.
func FirstMatch(rs []Rule, mimeType, ext string, metadata map[string]any) *Rule {
	for i := range rs {
		if rs[i].Matches(mimeType, ext, metadata) {
			return &rs[i]
		}
	}
	return nil
}

// DefaultImageExtensions is the extension safety net of the default rule.
var DefaultImageExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".bmp",
	".tif", ".tiff", ".webp", ".heic", ".heif",
}

// Default returns the stock rule set: a single rule collecting images by
// MIME prefix with the extension allow-list as backup.
func Default() []Rule {
	return []Rule{New("All images", "image/", DefaultImageExtensions, nil)}
}
