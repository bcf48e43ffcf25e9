package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bassista/go_weather/internal/repository"
	"github.com/containerd/errdefs"
)

var (
	ErrUserNotFound  = fmt.Errorf("user not found: %w", errdefs.ErrNotFound)
	ErrCityNotFound  = fmt.Errorf("city not being tracked: %w", errdefs.ErrNotFound)
	ErrUsernameTaken = fmt.Errorf("username already exists: %w", errdefs.ErrAlreadyExists)
	ErrEmptyName     = fmt.Errorf("name must not be empty: %w", errdefs.ErrInvalidArgument)
)

// Store keeps the in-memory copy of the data document.
// Every read-modify-write happens under mu, so handlers and the refresher never interleave.
type Store struct {
	mu      sync.RWMutex
	data    repository.DataDocument
	version uint64 // incremented on every mutation
	dirty   bool   // true if data changed since the last successful save
}

// NewStore creates a store seeded with doc.
func NewStore(doc repository.DataDocument) *Store {
	if doc == nil {
		doc = repository.DataDocument{}
	}
	doc.ApplyDefaults()
	return &Store{data: doc}
}

// IsDirty returns true if the store has unsaved changes.
func (s *Store) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Version returns the mutation counter.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns a deep copy of the cached data.
func (s *Store) Snapshot() (repository.DataDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneData(s.data)
}

// SnapshotVersion returns a deep copy together with the version it reflects.
func (s *Store) SnapshotVersion() (repository.DataDocument, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := cloneData(s.data)
	return doc, s.version, err
}

// MarkPersisted clears the dirty flag if nothing changed since version was snapshotted.
func (s *Store) MarkPersisted(version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == version {
		s.dirty = false
	}
}

// ReplaceIfUnchanged swaps the cached data with a document that already matches the disk.
// It does nothing and returns false if the store was mutated after version was read
// or has unsaved changes.
func (s *Store) ReplaceIfUnchanged(doc repository.DataDocument, version uint64) (bool, error) {
	cloned, err := cloneData(doc)
	if err != nil {
		return false, err
	}
	cloned.ApplyDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version || s.dirty {
		return false, nil
	}
	s.data = cloned
	s.version++
	return true, nil
}

// Reset drops every user.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = repository.DataDocument{}
	s.touch()
}

// RegisterUser adds a user and returns its id.
// Ids are the highest existing id plus one, so they stay sequential and are never reused
// while the store lives; a reset starts again at 1.
func (s *Store) RegisterUser(username string) (int, error) {
	if username == "" {
		return 0, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.UsernameTaken(username) {
		return 0, fmt.Errorf("%q: %w", username, ErrUsernameTaken)
	}

	id := 1
	for existing := range s.data {
		if existing >= id {
			id = existing + 1
		}
	}
	s.data[id] = &repository.User{
		Username:      username,
		TrackedCities: map[string]*repository.City{},
		CityOrder:     []string{},
	}
	s.touch()
	return id, nil
}

// User returns a copy of the user.
func (s *Store) User(id int) (repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.data[id]
	if !ok {
		return repository.User{}, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	var out repository.User
	if err := cloneInto(u, &out); err != nil {
		return repository.User{}, err
	}
	return out, nil
}

// TrackCity attaches a city with no weather to the user, replacing any city of the same name.
func (s *Store) TrackCity(userID int, name string, lat, lon float64) error {
	if name == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.data[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	if _, exists := u.TrackedCities[name]; !exists {
		u.CityOrder = append(u.CityOrder, name)
	}
	u.TrackedCities[name] = &repository.City{Latitude: lat, Longitude: lon}
	s.touch()
	return nil
}

// City returns a copy of a tracked city.
func (s *Store) City(userID int, name string) (repository.City, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.cityUnlocked(userID, name)
	if err != nil {
		return repository.City{}, err
	}
	var out repository.City
	if err := cloneInto(c, &out); err != nil {
		return repository.City{}, err
	}
	return out, nil
}

// UpdateWeather stores a fetched snapshot on a tracked city.
func (s *Store) UpdateWeather(userID int, name string, weather repository.CurrentWeather, updatedAt string) error {
	var w repository.CurrentWeather
	if err := cloneInto(&weather, &w); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.cityUnlocked(userID, name)
	if err != nil {
		return err
	}
	c.Weather = &w
	c.LastUpdated = &updatedAt
	s.touch()
	return nil
}

func (s *Store) cityUnlocked(userID int, name string) (*repository.City, error) {
	u, ok := s.data[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	c, ok := u.TrackedCities[name]
	if !ok {
		return nil, fmt.Errorf("city %q of user %d: %w", name, userID, ErrCityNotFound)
	}
	return c, nil
}

// touch records a mutation (caller must hold the write lock).
func (s *Store) touch() {
	s.version++
	s.dirty = true
}

// cloneData deep-copies the document to avoid shared maps between cache and callers.
func cloneData(doc repository.DataDocument) (repository.DataDocument, error) {
	out := repository.DataDocument{}
	if doc == nil {
		return out, nil
	}
	if err := cloneInto(doc, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return repository.DataDocument{}, nil
	}
	return out, nil
}

func cloneInto(src, dst any) error {
	if src == nil {
		return errors.New("clone: nil source")
	}
	bytes, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, dst)
}
