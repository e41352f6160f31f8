package history

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

type PersistedState struct {
	Entries map[string]Entry `json:"entries"`
}

func LoadState(path string) (PersistedState, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return PersistedState{Entries: map[string]Entry{}}, nil
		}
		return PersistedState{}, err
	}
	var state PersistedState
	if err := json.Unmarshal(blob, &state); err != nil {
		return PersistedState{}, err
	}
	if state.Entries == nil {
		state.Entries = map[string]Entry{}
	}
	return state, nil
}

func SaveState(path string, state PersistedState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	blob, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// FileStore keeps entries in memory and rewrites a JSON state file after
// every record.
type FileStore struct {
	*MemoryStore
	path   string
	saveMu sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	state, err := LoadState(path)
	if err != nil {
		return nil, err
	}
	mem := NewMemoryStore()
	for id, e := range state.Entries {
		mem.entries[id] = e
	}
	return &FileStore{MemoryStore: mem, path: path}, nil
}

func (s *FileStore) Record(ctx context.Context, e Entry) (Entry, error) {
	e, err := s.MemoryStore.Record(ctx, e)
	if err != nil {
		return Entry{}, err
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := SaveState(s.path, PersistedState{Entries: s.snapshot()}); err != nil {
		return e, err
	}
	return e, nil
}
