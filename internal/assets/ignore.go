package assets

import (
	"path"
	"strings"
)

var tempSuffixes = []string{"~", ".tmp", ".part", ".crdownload", ".swp"}

// Ignored reports whether rel names a file that is never tracked: hidden
// entries anywhere in the path and editor or download temp files. Atomic
// writers stage content under such names before renaming into place.
func Ignored(rel string) bool {
	rel = NormalizePath(rel)
	if rel == "" {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	base := strings.ToLower(path.Base(rel))
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}
