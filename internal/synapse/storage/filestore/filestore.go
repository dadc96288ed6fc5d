// Package filestore is the filesystem half of the dual-backend memory
// layer: a directory of plain-text files addressed purely by filename, with
// no metadata, history, or version tracking.
package filestore

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/synapsehq/synapse/internal/pkg/errno"
)

// Extension is appended to logical memory names when stored on disk.
const Extension = ".md"

// DefaultEncoding is the only encoding the store reads and writes.
const DefaultEncoding = "utf-8"

// Store is a directory-rooted plain-text memory store.
type Store struct {
	dir string
}

// New creates a store rooted at dir. The encoding label comes from
// configuration; anything but UTF-8 is rejected up front rather than
// silently mis-decoded.
func New(dir, encoding string) (*Store, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
	default:
		return nil, errno.Synapsef("unsupported memory file encoding: %q", encoding)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string { return s.dir }

// EnsureDirectory creates the root directory (and parents) if missing.
// Idempotent; called lazily before every write.
func (s *Store) EnsureDirectory() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errno.NewSynapseError("create memory directory "+s.dir, err)
	}
	return nil
}

// CanonicalName reduces a logical name to the single key both stores use:
// the leaf path component (so callers cannot escape the root) with the
// fixed extension appended when absent.
func CanonicalName(name string) string {
	name = filepath.Base(name)
	if !strings.HasSuffix(name, Extension) {
		name += Extension
	}
	return name
}

func (s *Store) filePath(name string) string {
	return filepath.Join(s.dir, CanonicalName(name))
}

// ReadFile returns the content of a memory file, or found=false when the
// file does not exist. Any other I/O failure is wrapped.
func (s *Store) ReadFile(name string) (string, bool, error) {
	data, err := os.ReadFile(s.filePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errno.NewSynapseError("read memory file "+name, err)
	}
	return string(data), true, nil
}

// WriteFile writes content to a memory file, overwriting any previous
// content. The root directory is created first if needed.
func (s *Store) WriteFile(name, content string) error {
	if err := s.EnsureDirectory(); err != nil {
		return err
	}
	if err := os.WriteFile(s.filePath(name), []byte(content), 0o644); err != nil {
		return errno.NewSynapseError("write memory file "+name, err)
	}
	return nil
}

// RemoveFile deletes a memory file, reporting whether it existed.
func (s *Store) RemoveFile(name string) (bool, error) {
	err := os.Remove(s.filePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errno.NewSynapseError("remove memory file "+name, err)
	}
	return true, nil
}

// ListFiles returns the names of all memory files directly under the root,
// sorted. A missing root directory lists as empty.
func (s *Store) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errno.NewSynapseError("list memory directory "+s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
