package assets

import (
	"path"
	"strings"
)

// LogicalType is the coarse kind of asset content.
type LogicalType string

const (
	TypeImage   LogicalType = "image"
	TypeAudio   LogicalType = "audio"
	TypeUnknown LogicalType = "unknown"
)

// Category is the semantic role of an asset, derived from its folder.
type Category string

const (
	CategoryBackground Category = "background"
	CategoryCharacter  Category = "character"
	CategoryEvidence   Category = "evidence"
	CategoryProfile    Category = "profile"
	CategoryEffect     Category = "effect"
	CategoryBGM        Category = "bgm"
	CategorySFX        Category = "sfx"
	CategoryVoice      Category = "voice"
	CategoryOther      Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryBackground,
	CategoryCharacter,
	CategoryEvidence,
	CategoryProfile,
	CategoryEffect,
	CategoryBGM,
	CategorySFX,
	CategoryVoice,
	CategoryOther,
}

// ParseCategory normalizes a user supplied category name. Plural folder
// spellings ("backgrounds", "voices") are accepted.
func ParseCategory(value string) (Category, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimSuffix(v, "s")
	switch v {
	case "background":
		return CategoryBackground, true
	case "character":
		return CategoryCharacter, true
	case "evidence":
		return CategoryEvidence, true
	case "profile":
		return CategoryProfile, true
	case "effect":
		return CategoryEffect, true
	case "bgm":
		return CategoryBGM, true
	case "sfx":
		return CategorySFX, true
	case "voice":
		return CategoryVoice, true
	case "other":
		return CategoryOther, true
	}
	return "", false
}

// AudioProps holds the playback settings only audio assets carry.
type AudioProps struct {
	Loop   bool    `json:"loop"`
	Volume float64 `json:"volume"`
}

// Candidate is a classified filesystem observation. It has no identity yet;
// the registry assigns one.
type Candidate struct {
	RelativePath string      `json:"relative_path"`
	LogicalType  LogicalType `json:"logical_type"`
	Category     Category    `json:"category"`
	MimeType     string      `json:"mime_type"`
}

// NewCandidate classifies rel and returns the resulting candidate.
func NewCandidate(rel string) Candidate {
	rel = NormalizePath(rel)
	logical, category := Classify(rel)
	return Candidate{
		RelativePath: rel,
		LogicalType:  logical,
		Category:     category,
		MimeType:     MimeType(rel),
	}
}

// Descriptor is the registry's record for one tracked asset. Audio is set
// exactly when LogicalType is TypeAudio.
type Descriptor struct {
	ID           string      `json:"id"`
	RelativePath string      `json:"relative_path"`
	DisplayName  string      `json:"display_name"`
	LogicalType  LogicalType `json:"logical_type"`
	Category     Category    `json:"category"`
	MimeType     string      `json:"mime_type"`
	Audio        *AudioProps `json:"audio,omitempty"`
}

// IsAudio reports whether the descriptor carries audio properties.
func (d Descriptor) IsAudio() bool {
	return d.Audio != nil
}

// Clone returns a deep copy so callers can hand descriptors across goroutines.
func (d Descriptor) Clone() Descriptor {
	if d.Audio != nil {
		props := *d.Audio
		d.Audio = &props
	}
	return d
}

// Override carries user-entered metadata that filesystem observations never
// clobber. Nil fields mean "no override".
type Override struct {
	DisplayName *string  `json:"display_name,omitempty"`
	Loop        *bool    `json:"loop,omitempty"`
	Volume      *float64 `json:"volume,omitempty"`
}

// IsZero reports whether the override sets nothing.
func (o Override) IsZero() bool {
	return o.DisplayName == nil && o.Loop == nil && o.Volume == nil
}

// Merge layers other on top of o, field by field.
func (o Override) Merge(other Override) Override {
	if other.DisplayName != nil {
		o.DisplayName = other.DisplayName
	}
	if other.Loop != nil {
		o.Loop = other.Loop
	}
	if other.Volume != nil {
		o.Volume = other.Volume
	}
	return o
}

// Build derives a descriptor from a candidate with filesystem defaults and
// then layers the override on top.
func Build(id string, c Candidate, o Override) Descriptor {
	d := Descriptor{
		ID:           id,
		RelativePath: c.RelativePath,
		DisplayName:  DefaultDisplayName(c.RelativePath),
		LogicalType:  c.LogicalType,
		Category:     c.Category,
		MimeType:     c.MimeType,
	}
	if c.LogicalType == TypeAudio {
		d.Audio = &AudioProps{Loop: c.Category == CategoryBGM, Volume: 1.0}
	}
	if o.DisplayName != nil && strings.TrimSpace(*o.DisplayName) != "" {
		d.DisplayName = *o.DisplayName
	}
	if d.Audio != nil {
		if o.Loop != nil {
			d.Audio.Loop = *o.Loop
		}
		if o.Volume != nil {
			d.Audio.Volume = *o.Volume
		}
	}
	return d
}

// DefaultDisplayName is the file name without its extension.
func DefaultDisplayName(rel string) string {
	base := path.Base(NormalizePath(rel))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
