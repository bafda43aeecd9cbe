package assets

import (
	"path"
	"strings"
)

var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
}

// MimeType returns the media type for the file extension of name, or
// application/octet-stream when the extension is not an asset type.
func MimeType(name string) string {
	if mt, ok := mimeTypes[strings.ToLower(path.Ext(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}
