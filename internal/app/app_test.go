package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bassista/go_weather/internal/cache"
	"github.com/bassista/go_weather/internal/config"
	"github.com/bassista/go_weather/internal/repository"
	"github.com/bassista/go_weather/internal/weather"
)

// mockRepository implements repository.Repository for testing
type mockRepository struct {
	mu             sync.Mutex
	watcherStarted bool
	watcherErr     error
	saves          int
	doc            repository.DataDocument
}

func (m *mockRepository) Load(ctx context.Context) (repository.DataDocument, error) {
	return m.doc, nil
}

func (m *mockRepository) Save(ctx context.Context, doc repository.DataDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.doc = doc
	return nil
}

func (m *mockRepository) StartWatcher(ctx context.Context, store repository.CacheStore) error {
	if m.watcherErr != nil {
		return m.watcherErr
	}
	m.watcherStarted = true
	return nil
}

func (m *mockRepository) saved() (int, repository.DataDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves, m.doc
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ShutDownTimeout: 2 * time.Second},
		Data:   config.DataConfig{PersistInterval: time.Hour},
		Weather: config.WeatherConfig{
			Timezone:                "UTC",
			RefreshInterval:         time.Hour,
			DefaultHourlyParameters: config.DefaultHourlyParameters,
		},
	}
}

func TestNew_Success(t *testing.T) {
	cfg := testConfig()
	app, err := New(cfg, &mockRepository{}, cache.NewStore(nil), weather.NewMemoryClient("UTC"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if app.Config != cfg {
		t.Error("config not set correctly")
	}
	if app.Tracker == nil {
		t.Error("tracker should not be nil")
	}
	if app.Weather == nil {
		t.Error("weather client should not be nil")
	}
	if app.BaseCtx == nil || app.Cancel == nil {
		t.Error("lifecycle context should be set")
	}
}

func TestNew_NilDependencies(t *testing.T) {
	cfg := testConfig()
	repo := &mockRepository{}
	store := cache.NewStore(nil)
	client := weather.NewMemoryClient("")

	tests := []struct {
		name string
		fn   func() (*App, error)
		want string
	}{
		{"config", func() (*App, error) { return New(nil, repo, store, client) }, "config is nil"},
		{"repo", func() (*App, error) { return New(cfg, nil, store, client) }, "repo is nil"},
		{"store", func() (*App, error) { return New(cfg, repo, nil, client) }, "cache store is nil"},
		{"client", func() (*App, error) { return New(cfg, repo, store, nil) }, "weather client is nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := tt.fn()
			if err == nil || err.Error() != tt.want {
				t.Errorf("expected %q, got %v", tt.want, err)
			}
			if app != nil {
				t.Error("expected nil app on error")
			}
		})
	}
}

func TestApp_Shutdown(t *testing.T) {
	app, _ := New(testConfig(), &mockRepository{}, cache.NewStore(nil), weather.NewMemoryClient(""))

	select {
	case <-app.BaseCtx.Done():
		t.Error("context should not be done before shutdown")
	default:
	}

	app.Shutdown()

	select {
	case <-app.BaseCtx.Done():
	default:
		t.Error("context should be done after shutdown")
	}
}

func TestApp_Shutdown_Nil(t *testing.T) {
	var app *App
	app.Shutdown()

	app = &App{Cancel: nil}
	app.Shutdown()
}

func TestApp_StartWatchers_WatcherToggle(t *testing.T) {
	cfg := testConfig()
	repo := &mockRepository{}
	app, _ := New(cfg, repo, cache.NewStore(nil), weather.NewMemoryClient(""))
	defer app.Shutdown()

	if err := app.StartWatchers(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if repo.watcherStarted {
		t.Error("watcher should not start when disabled")
	}

	cfg2 := testConfig()
	cfg2.Data.WatchEnabled = true
	repo2 := &mockRepository{}
	app2, _ := New(cfg2, repo2, cache.NewStore(nil), weather.NewMemoryClient(""))
	defer app2.Shutdown()

	if err := app2.StartWatchers(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !repo2.watcherStarted {
		t.Error("watcher should start when enabled")
	}
}

func TestApp_StartWatchers_WatcherError(t *testing.T) {
	cfg := testConfig()
	cfg.Data.WatchEnabled = true
	app, _ := New(cfg, &mockRepository{watcherErr: errors.New("no inotify")}, cache.NewStore(nil), weather.NewMemoryClient(""))
	defer app.Shutdown()

	if err := app.StartWatchers(); err == nil {
		t.Error("expected watcher error to be returned")
	}
}

func TestApp_StartWatchers_RefresherRunsFirstPass(t *testing.T) {
	cfg := testConfig()
	cfg.Weather.RefreshEnabled = true
	repo := &mockRepository{}
	store := cache.NewStore(repository.DataDocument{
		1: {
			Username:      "alice",
			CityOrder:     []string{"Oslo"},
			TrackedCities: map[string]*repository.City{"Oslo": {Latitude: 59.91, Longitude: 10.75}},
		},
	})
	app, _ := New(cfg, repo, store, weather.NewMemoryClient("UTC"))
	defer app.Shutdown()

	if err := app.StartWatchers(); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, doc := repo.saved(); n > 0 && doc[1].TrackedCities["Oslo"].Weather != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("expected the first refresh pass to save weather for Oslo")
}

func TestApp_Shutdown_FinalFlush(t *testing.T) {
	repo := &mockRepository{}
	store := cache.NewStore(nil)
	app, _ := New(testConfig(), repo, store, weather.NewMemoryClient(""))

	if err := app.StartWatchers(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := store.RegisterUser("alice"); err != nil {
		t.Fatal(err)
	}

	app.Shutdown()

	n, doc := repo.saved()
	if n != 1 || doc[1] == nil || doc[1].Username != "alice" {
		t.Errorf("expected final flush to save the pending user, got %d saves", n)
	}
}

func TestRefreshLocation(t *testing.T) {
	if refreshLocation("") != time.Local || refreshLocation("auto") != time.Local {
		t.Error("expected local time for empty or auto timezone")
	}
	if refreshLocation("Not/AZone") != time.Local {
		t.Error("expected local time for invalid timezone")
	}
	if refreshLocation("Europe/Moscow").String() != "Europe/Moscow" {
		t.Error("expected named location")
	}
}
