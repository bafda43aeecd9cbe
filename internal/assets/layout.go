package assets

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Asset roots relative to the project directory.
const (
	ImageRoot = "img"
	AudioRoot = "audio"
)

// Layout is the fixed set of asset folders every project carries.
var Layout = []string{
	"img/backgrounds",
	"img/characters",
	"img/profiles",
	"img/evidence",
	"img/effects",
	"img/ui",
	"audio/bgm",
	"audio/sfx",
	"audio/voices",
}

// Roots returns the top-level asset directories scanned and watched.
func Roots() []string {
	return []string{ImageRoot, AudioRoot}
}

// EnsureLayout creates any missing layout folder under projectRoot.
func EnsureLayout(projectRoot string) error {
	for _, dir := range Layout {
		full := filepath.Join(projectRoot, filepath.FromSlash(dir))
		if err := os.MkdirAll(full, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// FolderFor returns the layout folder an asset of the given type and category
// is imported into. Category other goes to img/ui for images and audio/sfx
// for audio. ok is false when no folder fits, which happens for unknown types.
func FolderFor(logical LogicalType, category Category) (string, bool) {
	switch category {
	case CategoryBackground:
		return "img/backgrounds", true
	case CategoryCharacter:
		return "img/characters", true
	case CategoryEvidence:
		return "img/evidence", true
	case CategoryProfile:
		return "img/profiles", true
	case CategoryEffect:
		return "img/effects", true
	case CategoryBGM:
		return "audio/bgm", true
	case CategorySFX:
		return "audio/sfx", true
	case CategoryVoice:
		return "audio/voices", true
	}
	switch logical {
	case TypeImage:
		return "img/ui", true
	case TypeAudio:
		return "audio/sfx", true
	}
	return "", false
}

// Rel converts an absolute path under projectRoot into a normalized relative
// path. ok is false when abs lies outside the project.
func Rel(projectRoot, abs string) (string, bool) {
	rel, err := filepath.Rel(projectRoot, abs)
	if err != nil {
		return "", false
	}
	rel = NormalizePath(filepath.ToSlash(rel))
	if rel == "" || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// InAssetRoot reports whether rel lives under img/ or audio/.
func InAssetRoot(rel string) bool {
	first := strings.SplitN(NormalizePath(rel), "/", 2)[0]
	for _, root := range Roots() {
		if first == root {
			return true
		}
	}
	return false
}

// Abs joins a normalized relative path back onto projectRoot.
func Abs(projectRoot, rel string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(path.Clean(rel)))
}
