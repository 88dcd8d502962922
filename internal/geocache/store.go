// Package geocache persists upstream API responses to JSON files keyed by
// their query parameters. Every cache is best-effort: a missing or corrupt
// file reads as empty and write failures are logged, never returned.
package geocache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Storage reads and writes whole cache files by name.
type Storage interface {
	// Read returns the file content, or an error wrapping os.ErrNotExist when absent.
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
}

// Dir stores cache files under a root directory.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root. The directory is created on first write.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the directory the cache files live in.
func (d *Dir) Root() string {
	return d.root
}

// Path returns the on-disk location of a cache file.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(name))
}

// Read implements Storage.
func (d *Dir) Read(name string) ([]byte, error) {
	return os.ReadFile(d.Path(name))
}

// Write implements Storage. The file is replaced atomically via a temp file
// in the same directory.
func (d *Dir) Write(name string, data []byte) error {
	path := d.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Codec encodes cache file contents.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is the default codec.
type JSON struct{}

// Marshal implements Codec.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal implements Codec.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
