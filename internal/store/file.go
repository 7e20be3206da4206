// Package store persists the poll cursor. Three backends are provided: a
// JSON file, a Redis hash and a SQLite database.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caesar-terminal/offerwatch/internal/poll"
	"github.com/caesar-terminal/offerwatch/internal/tradeoffer"
)

// FileStore keeps the cursor in a single JSON document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (poll.Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return poll.NewData(), nil
		}
		return poll.Data{}, fmt.Errorf("store: read %s: %w", s.path, err)
	}

	d := poll.NewData()
	if err := json.Unmarshal(data, &d); err != nil {
		return poll.Data{}, fmt.Errorf("store: decode %s: %w", s.path, err)
	}
	if d.StateMap == nil {
		d.StateMap = make(map[uint64]tradeoffer.State)
	}
	return d, nil
}

// Save writes to a temp file and renames it over the old one so a crash
// never leaves a half-written cursor.
func (s *FileStore) Save(_ context.Context, d poll.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("store: create dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}

// unixOrZero and fromUnix keep the zero time distinct from the epoch in the
// Redis and SQLite encodings.
func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(secs int64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

var _ poll.Store = (*FileStore)(nil)
