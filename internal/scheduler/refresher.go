package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bassista/go_weather/internal/logger"
	"github.com/bassista/go_weather/internal/repository"
	"github.com/containerd/errdefs"
	"github.com/go-co-op/gocron"
)

const DefaultRefreshInterval = 900 * time.Second

// CityUpdater is the subset of the tracker service the refresher drives.
type CityUpdater interface {
	Database() (repository.DataDocument, error)
	FetchCity(ctx context.Context, userID int, city string) error
	Persist(ctx context.Context) error
}

// PassResult summarizes one refresh pass.
type PassResult struct {
	Updated int
	Failed  int
	Skipped int
}

// Refresher re-fetches current weather for every tracked city on a fixed interval.
// Upstream failures are logged and the city keeps its previous weather.
// One save is issued per pass when at least one city changed.
type Refresher struct {
	updater   CityUpdater
	interval  time.Duration
	scheduler *gocron.Scheduler

	mu      sync.Mutex
	running bool
}

func NewRefresher(updater CityUpdater, interval time.Duration, loc *time.Location) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if loc == nil {
		loc = time.Local
	}
	return &Refresher{
		updater:   updater,
		interval:  interval,
		scheduler: gocron.NewScheduler(loc),
	}
}

// Start runs a first pass right away, then one pass per interval until ctx is done.
// Passes never overlap. The returned channel is closed once the scheduler stopped.
func (r *Refresher) Start(ctx context.Context) (<-chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil, errors.New("refresher already running")
	}

	_, err := r.scheduler.Every(r.interval).SingletonMode().Do(func() {
		if ctx.Err() != nil {
			return
		}
		r.RefreshOnce(ctx)
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("refresher").Debugf("starting refresher with interval: %v", r.interval)
	r.scheduler.StartAsync()
	r.running = true

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		r.scheduler.Stop()
		logger.WithComponent("refresher").Info("refresher stopped")
	}()
	return done, nil
}

// RefreshOnce walks users by ascending id and their cities in tracking order.
func (r *Refresher) RefreshOnce(ctx context.Context) PassResult {
	log := logger.WithComponent("refresher")
	var res PassResult

	doc, err := r.updater.Database()
	if err != nil {
		log.Errorf("snapshot error: %v", err)
		return res
	}

	for _, id := range doc.SortedIDs() {
		for _, city := range doc[id].CityOrder {
			if ctx.Err() != nil {
				log.Debugf("refresh pass interrupted: %v", ctx.Err())
				r.persist(ctx, res)
				return res
			}
			if err := r.updater.FetchCity(ctx, id, city); err != nil {
				if errdefs.IsNotFound(err) {
					// Removed by a reset after the snapshot was taken.
					res.Skipped++
					continue
				}
				res.Failed++
				log.Warnf("refresh failed for user %d city %s: %v", id, city, err)
				continue
			}
			res.Updated++
		}
	}

	r.persist(ctx, res)
	log.Debugf("refresh pass done: %d updated, %d failed, %d skipped", res.Updated, res.Failed, res.Skipped)
	return res
}

func (r *Refresher) persist(ctx context.Context, res PassResult) {
	if res.Updated == 0 {
		return
	}
	if err := r.updater.Persist(ctx); err != nil {
		logger.WithComponent("refresher").Errorf("save after refresh failed: %v", err)
	}
}
