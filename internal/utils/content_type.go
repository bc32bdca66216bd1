package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

// extensions that mime.TypeByExtension misses or mislabels
var textLikeExts = map[string]bool{
	".yaml": true,
	".yml":  true,
	".toml": true,
	".md":   true,
	".log":  true,
}

// DetectContentType guesses a content type from the file name, falling
// back to application/octet-stream for anything unknown.
func DetectContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if textLikeExts[ext] {
		return "text/plain; charset=utf-8"
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}
