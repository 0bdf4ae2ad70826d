// internal/config/store.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists runtime parameters that must survive a restart,
// most importantly the shield reboot-escalation counter.
type Store interface {
	GetInt(key string) (int, error)
	SetInt(key string, value int) error
}

type fileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens a JSON-file backed Store. A missing file is not
// an error; it reads as an empty parameter set.
func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

func (s *fileStore) GetInt(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.read()
	if err != nil {
		return 0, err
	}
	return params[key], nil
}

func (s *fileStore) SetInt(key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.read()
	if err != nil {
		return err
	}
	params[key] = value
	return s.write(params)
}

func (s *fileStore) read() (map[string]int, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}

	params := map[string]int{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", s.path, err)
	}
	return params, nil
}

// write replaces the file atomically so a power cut mid-write cannot
// lose the escalation counter.
func (s *fileStore) write(params map[string]int) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("store: mkdir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}
