// Package prefs persists small user preferences across runs.
package prefs

import (
	"fmt"
	"sync"
)

// Store is a minimal key-value store. Get reports ok=false for a missing key.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

const (
	ThemeKey   = "theme"
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// LoadDarkMode reads the theme preference. Anything other than "dark",
// including a missing entry, means light.
func LoadDarkMode(s Store) (bool, error) {
	v, ok, err := s.Get(ThemeKey)
	if err != nil {
		return false, fmt.Errorf("read theme preference: %w", err)
	}
	return ok && v == ThemeDark, nil
}

func SaveDarkMode(s Store, dark bool) error {
	v := ThemeLight
	if dark {
		v = ThemeDark
	}
	if err := s.Set(ThemeKey, v); err != nil {
		return fmt.Errorf("write theme preference: %w", err)
	}
	return nil
}

type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.writes++
	return nil
}

// Writes counts Set calls.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
