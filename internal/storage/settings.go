package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
)

// SettingsStore owns the user settings file (config.json under the storage
// root). It caches the current settings in memory and serializes concurrent
// reads and updates; mutations go through Update so the cache and the file
// never diverge.
type SettingsStore struct {
	path string

	mu       sync.RWMutex
	settings domain.Settings
}

// NewSettingsStore loads the settings file, writing the defaults on first
// start. Unknown fields in an existing file are dropped by the typed decode;
// missing fields keep their default values.
func NewSettingsStore(path string) (*SettingsStore, error) {
	s := &SettingsStore{path: path}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.settings = domain.DefaultSettings()
		if err := s.write(s.settings); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		settings := domain.DefaultSettings()
		if err := json.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("parse settings: %w", err)
		}
		s.settings = settings
	}

	return s, nil
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := s.settings
	settings.Journals = append([]domain.Journal(nil), s.settings.Journals...)
	return settings
}

// Update applies fn to the settings and persists the result. If fn returns
// an error, the settings are left unchanged.
func (s *SettingsStore) Update(fn func(*domain.Settings) error) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.settings
	updated.Journals = append([]domain.Journal(nil), s.settings.Journals...)
	if err := fn(&updated); err != nil {
		return s.settings, err
	}
	if err := s.write(updated); err != nil {
		return s.settings, err
	}
	s.settings = updated
	return updated, nil
}

func (s *SettingsStore) write(settings domain.Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
