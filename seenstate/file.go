package seenstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore keeps the state as one indented JSON document. Writes go to a
// temporary file that is renamed over the target, so a crash mid-write
// leaves the previous document intact.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore returns a store for path. The parent directory is created on
// first save.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the document path.
func (f *FileStore) Path() string { return f.path }

// Load reads the document.
func (f *FileStore) Load(_ context.Context) (*State, LoadInfo, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), LoadInfo{}, nil
	}
	if err != nil {
		return New(), LoadInfo{}, fmt.Errorf("seenstate: read %s: %w", f.path, err)
	}

	st := New()
	if err := json.Unmarshal(data, st); err != nil {
		f.logger.Warn("seenstate: corrupt state file, starting empty", "path", f.path, "error", err)
		return New(), LoadInfo{Found: true, Corrupt: true, Err: err}, nil
	}
	st.Normalize(Caps{})
	return st, LoadInfo{Found: true}, nil
}

// Save writes the document atomically.
func (f *FileStore) Save(_ context.Context, st *State) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("seenstate: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("seenstate: encode: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("seenstate: write tmp: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("seenstate: rename: %w", err)
	}
	return nil
}

// Close is a no-op; FileStore holds no open handles.
func (f *FileStore) Close() error { return nil }
