package mimetype

import (
	"mime"
	"path/filepath"
	"strings"
)

// Default is used when the extension is unknown.
const Default = "application/octet-stream"

var types = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".gif":  "image/gif",
	".png":  "image/png",
}

// Get returns the MIME type for a file name, based on its extension.
func Get(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return Default
	}
	if t, ok := types[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return Default
}
