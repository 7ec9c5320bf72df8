// Package statefile implements the file-backed state store holding one binary
// state file per build under the workspace metadata directory.
package statefile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/keel/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.StateStore = (*Store)(nil)

// Store places state files under a single directory. Entries are addressed by
// build root directory; the physical name is a hash of that directory so
// entries stay valid regardless of path characters or length.
type Store struct {
	dir string
}

// NewStore creates a state store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: filepath.Clean(dir)}
}

// EntryFor returns the state file for the build rooted at rootDir.
func (s *Store) EntryFor(rootDir string) ports.StateFile {
	return &stateFile{store: s, path: s.entryPath(rootDir)}
}

// HasEntry reports whether a state file exists for the build rooted at rootDir.
func (s *Store) HasEntry(rootDir string) bool {
	_, err := os.Stat(s.entryPath(rootDir))
	return err == nil
}

// Discard removes every entry of the store.
func (s *Store) Discard() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return zerr.Wrap(err, "failed to discard state store")
	}
	return nil
}

func (s *Store) entryPath(rootDir string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%016x.bin", xxhash.Sum64String(filepath.Clean(rootDir))))
}

// stateFile is one entry of the store. Writes go through a temp file and a
// rename so a crashed write never leaves a truncated entry behind; truncation
// of the final file is still caught by the stream sentinel.
type stateFile struct {
	store *Store
	path  string
}

var _ ports.StateFile = (*stateFile)(nil)

func (f *stateFile) OutputStream() (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(f.path), domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, "failed to create state directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".state-*")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create state file")
	}
	return &atomicWriter{file: tmp, target: f.path}, nil
}

func (f *stateFile) InputStream() (io.ReadCloser, error) {
	in, err := os.Open(f.path) //nolint:gosec // Path is derived from the store root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, zerr.With(domain.ErrNoStateEntry, "path", f.path)
		}
		return nil, zerr.Wrap(err, "failed to open state file")
	}
	return in, nil
}

func (f *stateFile) StateFileForIncludedBuild(rootDir string) ports.StateFile {
	return f.store.EntryFor(rootDir)
}

type atomicWriter struct {
	file   *os.File
	target string
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

func (w *atomicWriter) Close() error {
	if err := w.file.Close(); err != nil {
		_ = os.Remove(w.file.Name())
		return zerr.Wrap(err, "failed to close state file")
	}
	if err := os.Rename(w.file.Name(), w.target); err != nil {
		_ = os.Remove(w.file.Name())
		return zerr.Wrap(err, "failed to commit state file")
	}
	return nil
}
