package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/bassista/go_weather/internal/cache"
	"github.com/bassista/go_weather/internal/logger"
	"github.com/bassista/go_weather/internal/repository"
	"github.com/bassista/go_weather/internal/weather"
	"github.com/containerd/errdefs"
)

// Store is the cache API the service needs.
type Store interface {
	cache.UserStore
	cache.CityStore
	cache.PersistableStore
}

// CurrentReport is the reading returned for raw coordinates.
type CurrentReport struct {
	Temperature *float64 `json:"temperature"`
	WindSpeed   *float64 `json:"wind_speed"`
	Pressure    *float64 `json:"pressure"`
}

// Service implements the user/city operations. Every mutation is saved to disk
// before the call returns.
type Service struct {
	store         Store
	repo          repository.Saver
	client        weather.Client
	defaultParams []string
	now           func() time.Time
}

type Option func(*Service)

// WithDefaultParameters sets the hourly parameters used when a query names none.
func WithDefaultParameters(params []string) Option {
	return func(s *Service) {
		if len(params) > 0 {
			s.defaultParams = params
		}
	}
}

// WithClock overrides the clock used for last_updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store Store, repo repository.Saver, client weather.Client, opts ...Option) *Service {
	s := &Service{
		store:  store,
		repo:   repo,
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentWeather fetches conditions for raw coordinates, without touching the store.
func (s *Service) CurrentWeather(ctx context.Context, lat, lon float64) (CurrentReport, error) {
	cond, err := s.client.Current(ctx, weather.Location{Latitude: lat, Longitude: lon})
	if err != nil {
		return CurrentReport{}, err
	}
	return CurrentReport{
		Temperature: cond.Current.Temperature,
		WindSpeed:   cond.Current.WindSpeed,
		Pressure:    cond.Pressure,
	}, nil
}

// RegisterUser creates a user and returns its id.
func (s *Service) RegisterUser(ctx context.Context, username string) (int, error) {
	id, err := s.store.RegisterUser(username)
	if err != nil {
		return 0, err
	}
	if err := s.Persist(ctx); err != nil {
		return 0, err
	}
	logger.WithComponent("tracker").Infof("registered user %d (%s)", id, username)
	return id, nil
}

// TrackCity attaches the city, saves, then fetches its current weather once.
// If the fetch fails the city stays tracked without weather and the error is returned.
func (s *Service) TrackCity(ctx context.Context, userID int, city string, lat, lon float64) error {
	if err := s.store.TrackCity(userID, city, lat, lon); err != nil {
		return err
	}
	if err := s.Persist(ctx); err != nil {
		return err
	}
	logger.WithComponent("tracker").Infof("user %d tracks %s (%.4f, %.4f)", userID, city, lat, lon)
	return s.RefreshCity(ctx, userID, city)
}

// TrackedCities lists city names in the order they were added.
func (s *Service) TrackedCities(userID int) ([]string, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(u.CityOrder))
	names = append(names, u.CityOrder...)
	return names, nil
}

// CityWeather returns the requested hourly parameters of a tracked city at an exact time label.
func (s *Service) CityWeather(ctx context.Context, userID int, city, timestamp string, params []string) (map[string]*float64, error) {
	c, err := s.store.City(userID, city)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		params = s.defaultParams
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("no hourly parameters requested: %w", errdefs.ErrInvalidArgument)
	}
	return s.client.AtTime(ctx, weather.Location{Latitude: c.Latitude, Longitude: c.Longitude}, params, timestamp)
}

// Database returns the whole store.
func (s *Service) Database() (repository.DataDocument, error) {
	return s.store.Snapshot()
}

// Reset clears every user and rewrites the file.
func (s *Service) Reset(ctx context.Context) error {
	s.store.Reset()
	if err := s.Persist(ctx); err != nil {
		return err
	}
	logger.WithComponent("tracker").Warn("database has been reset")
	return nil
}

// RefreshCity fetches current weather for one tracked city and saves it.
func (s *Service) RefreshCity(ctx context.Context, userID int, city string) error {
	if err := s.FetchCity(ctx, userID, city); err != nil {
		return err
	}
	return s.Persist(ctx)
}

// FetchCity fetches current weather for one tracked city and applies it in memory only.
func (s *Service) FetchCity(ctx context.Context, userID int, city string) error {
	c, err := s.store.City(userID, city)
	if err != nil {
		return err
	}

	cond, err := s.client.Current(ctx, weather.Location{Latitude: c.Latitude, Longitude: c.Longitude})
	if err != nil {
		return fmt.Errorf("fetch weather for %s: %w", city, err)
	}

	// The city may have been removed by a reset while the request was in flight.
	if err := s.store.UpdateWeather(userID, city, cond.Current, s.now().Format(time.RFC3339)); err != nil {
		return err
	}
	logger.WithComponent("tracker").Debugf("updated weather for user %d city %s", userID, city)
	return nil
}

// Persist saves the store if it has unsaved changes.
// It ignores cancellation of ctx so a disconnected client does not abort a save.
func (s *Service) Persist(ctx context.Context) error {
	return cache.Flush(context.WithoutCancel(ctx), s.store, s.repo)
}
