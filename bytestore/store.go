// Package bytestore provides anonymous, self-deleting byte buffers backed by
// the filesystem. A store has no name once created: the file disappears when
// the store is closed or the process exits.
package bytestore

import (
	"io"
	"os"
	"sync"

	"github.com/wippyai/plugin-runtime/errors"
)

const filePrefix = "PluginStream"

// Store is an append-only byte buffer with positioned reads.
// It is safe for concurrent use.
type Store struct {
	f    *os.File
	size int64
	mu   sync.RWMutex
}

// New creates an anonymous store in dir. An empty dir means os.TempDir().
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := openAnonymous(dir)
	if err != nil {
		return nil, errors.IO(errors.PhaseStore, "create byte store in "+dir, err)
	}
	return &Store{f: f}, nil
}

// openUnlinked is the portable fallback: create a named file and remove the
// name right away, keeping the descriptor.
func openUnlinked(dir string) (*os.File, error) {
	f, err := os.CreateTemp(dir, filePrefix+"*")
	if err != nil {
		return nil, err
	}
	if err := os.Remove(f.Name()); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Write appends p to the store.
func (s *Store) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return 0, os.ErrClosed
	}
	n, err := s.f.WriteAt(p, s.size)
	s.size += int64(n)
	if err != nil {
		return n, errors.IO(errors.PhaseStore, "write", err)
	}
	return n, nil
}

// ReadAt reads len(p) bytes starting at off. Like io.ReaderAt it returns
// io.EOF when fewer bytes are available.
func (s *Store) ReadAt(p []byte, off int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.f == nil {
		return 0, os.ErrClosed
	}
	if off >= s.size {
		return 0, io.EOF
	}
	return s.f.ReadAt(p, off)
}

// Size returns the number of bytes written so far.
func (s *Store) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Close releases the backing file. It is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
