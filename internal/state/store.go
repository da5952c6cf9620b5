package state

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFileName is the name of the state file in the temp directory.
const DefaultFileName = "aioniser_steps.json"

// DefaultPath returns the default state file location inside the system
// temp directory.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), DefaultFileName)
}

// Store loads and saves the complete [States] mapping.
//
// Load returns an empty mapping when nothing has been persisted yet.
// Save always writes the whole mapping, including records it did not change.
type Store interface {
	Load() (States, error)
	Save(States) error
}

// FileStore persists states to a single file.
//
// The serialization format follows the file extension (see [FormatForPath]).
// Writes go to a temporary file in the same directory which is then renamed
// over the state file, so readers never see a partially written file.
// There is no locking: concurrent writers race and the last rename wins.
type FileStore struct {
	path   string
	format Format
}

// NewFileStore creates a [FileStore] for the given path.
// An empty path uses [DefaultPath].
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath()
	}
	return &FileStore{
		path:   path,
		format: FormatForPath(path),
	}
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state file.
//
// A missing file is not an error: it means no cycle has ever run, and Load
// returns an empty mapping. Returns [*CorruptStateError] if the file cannot be
// parsed and [*PersistenceError] if it exists but cannot be read.
func (s *FileStore) Load() (States, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return States{}, nil
		}
		return nil, &PersistenceError{Path: s.path, Op: "read", Err: err}
	}

	states, err := Decode(data, s.format)
	if err != nil {
		return nil, &CorruptStateError{Path: s.path, Err: err}
	}
	return states, nil
}

// Save writes the whole mapping to the state file, replacing any existing
// content. Returns [*PersistenceError] on any I/O failure.
func (s *FileStore) Save(states States) error {
	data, err := Encode(states, s.format)
	if err != nil {
		return &PersistenceError{Path: s.path, Op: "encode", Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Path: s.path, Op: "write", Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Path: s.path, Op: "write", Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &PersistenceError{Path: s.path, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &PersistenceError{Path: s.path, Op: "write", Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return &PersistenceError{Path: s.path, Op: "write", Err: err}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		// Clean up temp file on rename failure
		os.Remove(tmpPath)
		return &PersistenceError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}

// MemoryStore is an in-memory [Store] for tests.
//
// Load and Save copy the mapping so callers cannot mutate stored state.
// Set SaveErr or LoadErr to simulate failures.
type MemoryStore struct {
	mu     sync.Mutex
	states States

	// Saves counts successful Save calls.
	Saves int

	LoadErr error
	SaveErr error
}

// NewMemoryStore creates a [MemoryStore] seeded with the given states.
func NewMemoryStore(initial States) *MemoryStore {
	return &MemoryStore{states: initial.Clone()}
}

// Load returns a copy of the stored mapping.
func (m *MemoryStore) Load() (States, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.states.Clone(), nil
}

// Save replaces the stored mapping with a copy of states.
func (m *MemoryStore) Save(states States) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.states = states.Clone()
	m.Saves++
	return nil
}
