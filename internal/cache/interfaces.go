package cache

import (
	"github.com/bassista/go_weather/internal/repository"
)

// ReadOnlyStore is the minimal cache API for read-only consumers.
type ReadOnlyStore interface {
	Snapshot() (repository.DataDocument, error)
}

// UserStore is the cache API needed by user handlers.
type UserStore interface {
	ReadOnlyStore
	RegisterUser(username string) (int, error)
	Reset()
}

// CityStore is the cache API needed by city handlers and the refresher.
type CityStore interface {
	ReadOnlyStore
	User(id int) (repository.User, error)
	TrackCity(userID int, name string, lat, lon float64) error
	City(userID int, name string) (repository.City, error)
	UpdateWeather(userID int, name string, weather repository.CurrentWeather, updatedAt string) error
}

// PersistableStore is the cache API needed by Flush and the persistence scheduler.
type PersistableStore interface {
	ReadOnlyStore
	IsDirty() bool
	SnapshotVersion() (repository.DataDocument, uint64, error)
	MarkPersisted(version uint64)
}

// AppStore is the cache contract the application container exposes.
// It supports controllers, the refresher, the persistence scheduler and the repository watcher.
type AppStore interface {
	repository.CacheStore
	UserStore
	CityStore
	PersistableStore
}
