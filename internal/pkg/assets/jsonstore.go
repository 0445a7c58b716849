package assets

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore persists bindings to a single JSON file. Writes go through a tmp
// file and rename so a crash never leaves a half-written table.
type JSONStore struct {
	mu       sync.Mutex
	path     string
	bindings []Binding
}

func OpenJSONStore(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &JSONStore{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &s.bindings); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) LoadBindings(_ context.Context) ([]Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Binding, len(s.bindings))
	copy(out, s.bindings)
	return out, nil
}

func (s *JSONStore) AppendBinding(_ context.Context, b Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings = append(s.bindings, b)
	return s.save()
}

func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.bindings, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
