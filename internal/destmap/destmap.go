// Package destmap computes copy destinations that preserve source
// provenance. It performs path arithmetic only; all I/O belongs to the
// caller.
package destmap

import (
	"path/filepath"
	"strings"
)

// AnchorSentinel names the bucket segment used when a path has no
// distinguishable volume or root component.
const AnchorSentinel = "ROOT"

var anchorSanitizer = strings.NewReplacer(":", "", `\`, "_", "/", "_")

// Anchor returns the directory-safe form of path's volume/root
// component. Windows drives keep their letter ("C:\x" yields "C"), UNC
// hosts and shares are joined with underscores, and rooted POSIX or
// relative paths collapse to AnchorSentinel.
func Anchor(path string) string {
	vol := strings.Trim(filepath.VolumeName(path), `\/`)
	a := anchorSanitizer.Replace(vol)
	if a == "" {
		return AnchorSentinel
	}
	return a
}

// Map returns dest/ruleName/<anchor>/<src relative to its anchor>. Two
// files with the same relative path under different volumes or roots
// therefore never collide, and the copy's location encodes exactly
// where the source came from.
func Map(dest, ruleName, src string) string {
	vol := filepath.VolumeName(src)
	rel := strings.TrimLeft(src[len(vol):], `\/`)
	return filepath.Join(dest, ruleName, Anchor(src), rel)
}
