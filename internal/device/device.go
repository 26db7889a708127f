// Package device persists the values that live on the user's device only:
// the cached family profile and the offer preferences. Each key is one
// JSON file in a directory.
package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"spesacasa/internal/core"
	"spesacasa/internal/log"
)

// Fixed key names.
const (
	KeyFamilyProfile    = "family_profile"
	KeyOfferPreferences = "offer_preferences"
)

type Store struct {
	dir string
	log *slog.Logger
	mu  sync.Mutex
}

// Open creates dir when missing.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create device dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, log: log.WithComponent(logger, log.ComponentDevice)}, nil
}

// Get decodes key into v. ok is false when the key was never written.
func (s *Store) Get(key string, v any) (ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Set writes v atomically: readers see the old or the new blob, never a
// partial one.
func (s *Store) Set(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	s.log.Debug("Device key written", "key", key, "bytes", len(b))
	return nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// SaveProfile satisfies state.ProfileCache.
func (s *Store) SaveProfile(p core.FamilyProfile) error {
	return s.Set(KeyFamilyProfile, p)
}

func (s *Store) LoadProfile() (core.FamilyProfile, bool, error) {
	var p core.FamilyProfile
	ok, err := s.Get(KeyFamilyProfile, &p)
	return p, ok, err
}

// ClearProfile forgets the cached profile on logout. Offer preferences
// are kept.
func (s *Store) ClearProfile() error {
	return s.Delete(KeyFamilyProfile)
}

func (s *Store) SavePreferences(p core.OfferPreferences) error {
	return s.Set(KeyOfferPreferences, p)
}

func (s *Store) LoadPreferences() (core.OfferPreferences, bool, error) {
	var p core.OfferPreferences
	ok, err := s.Get(KeyOfferPreferences, &p)
	return p, ok, err
}
