package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bassista/go_weather/internal/cache"
	"github.com/bassista/go_weather/internal/config"
	"github.com/bassista/go_weather/internal/logger"
	"github.com/bassista/go_weather/internal/repository"
	"github.com/bassista/go_weather/internal/scheduler"
	"github.com/bassista/go_weather/internal/tracker"
	"github.com/bassista/go_weather/internal/weather"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config  *config.Config
	Repo    repository.Repository
	Cache   cache.AppStore
	Weather weather.Client
	Tracker *tracker.Service

	BaseCtx context.Context
	Cancel  context.CancelFunc

	background []<-chan struct{}
}

func New(cfg *config.Config, repo repository.Repository, store cache.AppStore, client weather.Client) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if repo == nil {
		return nil, errors.New("repo is nil")
	}
	if store == nil {
		return nil, errors.New("cache store is nil")
	}
	if client == nil {
		return nil, errors.New("weather client is nil")
	}

	svc := tracker.NewService(store, repo, client,
		tracker.WithDefaultParameters(weather.ParseParameters(cfg.Weather.DefaultHourlyParameters)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:  cfg,
		Repo:    repo,
		Cache:   store,
		Weather: client,
		Tracker: svc,
		BaseCtx: ctx,
		Cancel:  cancel,
	}, nil
}

// Shutdown cancels the base context and waits, up to the configured shutdown timeout,
// for background goroutines to finish (including the final flush).
func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()

	wait := 5 * time.Second
	if a.Config != nil && a.Config.Server.ShutDownTimeout > 0 {
		wait = a.Config.Server.ShutDownTimeout
	}
	deadline := time.After(wait)
	for _, done := range a.background {
		select {
		case <-done:
		case <-deadline:
			logger.WithComponent("app").Warn("background tasks did not stop in time")
			return
		}
	}
}

// StartWatchers starts the data file watcher, the persistence retry scheduler and the
// weather refresher, each according to configuration.
func (a *App) StartWatchers() error {
	if a.Config.Data.WatchEnabled {
		if err := a.Repo.StartWatcher(a.BaseCtx, a.Cache); err != nil {
			return fmt.Errorf("cannot start data file watcher: %w", err)
		}
	}

	a.background = append(a.background,
		cache.StartPersistenceScheduler(a.BaseCtx, a.Cache, a.Repo, a.Config.Data.PersistInterval))

	if !a.Config.Weather.RefreshEnabled {
		logger.WithComponent("app").Info("weather refresher disabled")
		return nil
	}

	r := scheduler.NewRefresher(a.Tracker, a.Config.Weather.RefreshInterval, refreshLocation(a.Config.Weather.Timezone))
	done, err := r.Start(a.BaseCtx)
	if err != nil {
		return fmt.Errorf("cannot start weather refresher: %w", err)
	}
	a.background = append(a.background, done)
	return nil
}

func refreshLocation(tz string) *time.Location {
	if tz == "" || tz == "auto" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.WithComponent("app").Warnf("invalid timezone %q for refresher, using local time: %v", tz, err)
		return time.Local
	}
	return loc
}
