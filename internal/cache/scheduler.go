package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/go_weather/internal/logger"
	"github.com/bassista/go_weather/internal/repository"
)

// flushMu serializes saves so an older snapshot never lands after a newer one.
var flushMu sync.Mutex

// Flush writes the current store content to disk if it has unsaved changes.
// The dirty flag is cleared only if no mutation happened while saving.
func Flush(ctx context.Context, store PersistableStore, repo repository.Saver) error {
	flushMu.Lock()
	defer flushMu.Unlock()

	if !store.IsDirty() {
		logger.WithComponent("persist").Tracef("store is clean, skipping flush")
		return nil
	}

	snapshot, version, err := store.SnapshotVersion()
	if err != nil {
		return fmt.Errorf("snapshot store: %w", err)
	}

	if err := repo.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save store: %w", err)
	}

	store.MarkPersisted(version)
	logger.WithComponent("persist").Debugf("store persisted (version %d, %d users)", version, len(snapshot))
	return nil
}

// StartPersistenceScheduler runs a goroutine that periodically retries flushing a dirty store.
// Handlers save synchronously; this only catches saves that failed. On ctx.Done it performs
// a final flush before returning.
// Returns a channel that is closed when the scheduler has completed shutdown.
func StartPersistenceScheduler(
	ctx context.Context,
	store PersistableStore,
	repo repository.Saver,
	interval time.Duration,
) <-chan struct{} {
	done := make(chan struct{})
	logger.WithComponent("persist").Debugf("starting persistence scheduler with interval: %v", interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// Final flush on shutdown; the base context is already cancelled.
				if err := Flush(context.Background(), store, repo); err != nil {
					logger.WithComponent("persist").Errorf("final flush failed: %v", err)
				}
				logger.WithComponent("persist").Info("persistence scheduler stopped")
				return
			case <-ticker.C:
				if err := Flush(ctx, store, repo); err != nil {
					logger.WithComponent("persist").Errorf("persist retry failed: %v", err)
				}
			}
		}
	}()
	return done
}
