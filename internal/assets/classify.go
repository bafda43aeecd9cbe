package assets

import (
	"path"
	"strings"
)

// Rule maps a directory prefix to a classification.
type Rule struct {
	Prefix      string
	LogicalType LogicalType
	Category    Category
}

// Rules is the ordered classification table. The first rule whose prefix
// matches whole leading path components wins.
var Rules = []Rule{
	{"img/backgrounds", TypeImage, CategoryBackground},
	{"img/characters", TypeImage, CategoryCharacter},
	{"img/profiles", TypeImage, CategoryProfile},
	{"img/evidence", TypeImage, CategoryEvidence},
	{"img/evidences", TypeImage, CategoryEvidence},
	{"img/effects", TypeImage, CategoryEffect},
	{"img/ui", TypeImage, CategoryOther},
	{"audio/bgm", TypeAudio, CategoryBGM},
	{"audio/sfx", TypeAudio, CategorySFX},
	{"audio/voices", TypeAudio, CategoryVoice},
}

var (
	imageExtensions = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {}, ".gif": {}}
	audioExtensions = map[string]struct{}{".mp3": {}, ".wav": {}, ".ogg": {}}
)

// Classify maps a project-relative path to its logical type and category.
// It never fails: unmatched paths fall back to the extension with category
// other, and unknown extensions yield (unknown, other).
func Classify(rel string) (LogicalType, Category) {
	norm := strings.ToLower(NormalizePath(rel))
	for _, rule := range Rules {
		if hasDirPrefix(norm, rule.Prefix) {
			return rule.LogicalType, rule.Category
		}
	}
	return TypeByExtension(norm), CategoryOther
}

// TypeByExtension derives the logical type from the file extension alone.
func TypeByExtension(name string) LogicalType {
	ext := strings.ToLower(path.Ext(name))
	if _, ok := imageExtensions[ext]; ok {
		return TypeImage
	}
	if _, ok := audioExtensions[ext]; ok {
		return TypeAudio
	}
	return TypeUnknown
}

// RecognizedExtension reports whether name has an image or audio extension.
func RecognizedExtension(name string) bool {
	return TypeByExtension(name) != TypeUnknown
}

// NormalizePath converts rel to the canonical slash separated form used as
// registry key: backslashes become slashes, dot segments are cleaned, and
// leading "./" or "/" is dropped.
func NormalizePath(rel string) string {
	rel = strings.ReplaceAll(strings.TrimSpace(rel), `\`, "/")
	if rel == "" {
		return ""
	}
	cleaned := path.Clean(rel)
	cleaned = strings.TrimLeft(cleaned, "/")
	if cleaned == "." {
		return ""
	}
	return cleaned
}

func hasDirPrefix(p, prefix string) bool {
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/'
}
