// Package convert maps source scan files to mirrored output directories
// and runs the per-file conversion state machine.
package convert

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultAnchor is the path segment that marks where the mirrored output
// hierarchy begins in a source path.
const DefaultAnchor = "images"

var unsafeRuns = regexp.MustCompile(`[^A-Za-z0-9_.\-]+`)

// SafeLeafName converts a source filename into a directory name, replacing
// every run of characters outside [alphanumeric _ . -] with one underscore.
//
// The transform is many-to-one: distinct filenames can sanitize to the same
// directory. Colliding sources are last-writer-wins under the conversion
// state machine's already-done check; the provenance catalog keeps every
// original input path, so collisions remain detectable.
func SafeLeafName(name string) string {
	return unsafeRuns.ReplaceAllString(name, "_")
}

// MapOutput derives the output directory for a source file and the
// untransformed relative path used for provenance.
//
// The output directory mirrors every path segment after the first segment
// named anchor, with the filename segment sanitized into a directory name.
// When the anchor is absent there is no reliable place to root the mirror,
// so the sanitized filename becomes the sole component and the hierarchy is
// dropped. Pure function, no I/O.
func MapOutput(sourcePath, outputRoot, anchor string) (outDir, relative string) {
	segments := strings.Split(filepath.ToSlash(sourcePath), "/")

	rel := segments[len(segments)-1:]
	for i, seg := range segments {
		if seg == anchor {
			rel = segments[i+1:]
			break
		}
	}
	if len(rel) == 0 {
		rel = segments[len(segments)-1:]
	}

	relative = strings.Join(rel, "/")

	parts := make([]string, len(rel))
	copy(parts, rel[:len(rel)-1])
	parts[len(parts)-1] = SafeLeafName(rel[len(rel)-1])
	outDir = filepath.Join(outputRoot, filepath.Join(parts...))
	return outDir, relative
}
