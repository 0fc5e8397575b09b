// Package identify determines a file's MIME type and extension.
//
// Two detector variants exist: signature-based sniffing (preferred, robust
// against mislabeled files) and an extension-table guess. The variant is
// chosen at construction time by the caller; there is no runtime feature
// probing.
package identify

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// OctetStream is the generic binary type used when nothing better is known.
const OctetStream = "application/octet-stream"

// Detector reports the MIME type of the file at path. Implementations
// never fail: unknown or unreadable content degrades to OctetStream.
type Detector interface {
	Detect(path string) string
}

// Identify runs d against path and returns (mimeType, extension). The
// extension is the lower-cased filesystem suffix including the leading
// dot, or "" when the name has none.
func Identify(d Detector, path string) (string, string) {
	ext := strings.ToLower(filepath.Ext(path))
	mt := d.Detect(path)
	if mt == "" {
		mt = OctetStream
	}
	return mt, ext
}

// Signature detects content types by magic-number sniffing. When the
// file cannot be read it falls back to the extension table.
type Signature struct {
	fallback Extension
}

// NewSignature returns the signature-based detector.
func NewSignature() Signature { return Signature{} }

// Detect sniffs the file's leading bytes.
func (s Signature) Detect(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return s.fallback.Detect(path)
	}
	return bareType(mt.String())
}

// Extension guesses the type from the filename suffix alone.
type Extension struct{}

// NewExtension returns the extension-table detector.
func NewExtension() Extension { return Extension{} }

// Detect maps the suffix through a local table first, then the
// platform's mime database.
func (Extension) Detect(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return OctetStream
	}
	if t, ok := extraTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return bareType(t)
	}
	return OctetStream
}

// bareType strips parameters such as "; charset=utf-8" so rule prefixes
// match against the media type alone.
func bareType(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// extraTypes covers suffixes the platform mime database commonly misses.
var extraTypes = map[string]string{
	".heic": "image/heic",
	".heif": "image/heif",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
}
