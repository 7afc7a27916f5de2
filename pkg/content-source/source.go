package contentsource

import (
	"errors"
	"path"
	"strings"
)

// ErrNotFound is returned by Read when no content exists for a request path.
var ErrNotFound = errors.New("content not found")

// IndexFile is served when a request path names a directory.
const IndexFile = "index.html"

// Source is where the server reads content from on a cache miss,
// and where POSTed content is written to.
//
// Implementations must be thread-safe!
type Source interface {
	// Read returns the content for the given request path.
	// If the path does not name a regular file, the directory index is tried.
	// ErrNotFound is returned if neither exists.
	Read(requestPath string) (File, error)
	// Write stores body under the given request path.
	Write(requestPath string, body []byte) error
	// Close releases any resources held by the source.
	Close() error
}

// File is content read from a source.
type File struct {
	// Name is the resolved name of the content (e.g. ".../index.html"),
	// suitable for MIME type detection.
	Name string
	Body []byte
}

// cleanPath turns a request path into a rooted, slash-separated path
// that cannot climb above the root.
func cleanPath(requestPath string) string {
	return path.Clean("/" + requestPath)
}

// indexPath returns the directory index path for a request path.
func indexPath(requestPath string) string {
	p := cleanPath(requestPath)
	if strings.HasSuffix(p, "/") {
		return p + IndexFile
	}
	return p + "/" + IndexFile
}
