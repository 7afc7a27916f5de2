package contentsource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir serves content from files below a root directory.
type Dir struct {
	root string
}

// NewDir creates a source rooted at the given directory.
// The directory must exist.
func NewDir(root string) (Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Dir{}, fmt.Errorf("content root: %w", err)
	}
	if !info.IsDir() {
		return Dir{}, fmt.Errorf("content root %s is not a directory", root)
	}
	return Dir{root: root}, nil
}

func (d Dir) Read(requestPath string) (File, error) {
	name := d.filename(cleanPath(requestPath))
	if !isRegularFile(name) {
		name = d.filename(indexPath(requestPath))
	}
	body, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return File{}, ErrNotFound
	} else if err != nil {
		return File{}, err
	}
	return File{Name: name, Body: body}, nil
}

func (d Dir) Write(requestPath string, body []byte) error {
	p := cleanPath(requestPath)
	if p == "/" {
		return fmt.Errorf("cannot write to content root")
	}
	return os.WriteFile(d.filename(p), body, 0644)
}

func (d Dir) Close() error {
	return nil
}

func (d Dir) filename(cleaned string) string {
	return filepath.Join(d.root, filepath.FromSlash(cleaned))
}

func isRegularFile(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.Mode().IsRegular()
}
