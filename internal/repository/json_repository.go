package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/go_weather/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const watchDebounce = 200 * time.Millisecond

// CacheStore defines the interface for cache operations needed by the watcher callback.
type CacheStore interface {
	IsDirty() bool
	Version() uint64
	Snapshot() (DataDocument, error)
	// ReplaceIfUnchanged swaps in doc only if the store is still at version and clean.
	ReplaceIfUnchanged(doc DataDocument, version uint64) (bool, error)
}

// JSONRepository handles disk persistence and watching of the data file.
type JSONRepository struct {
	path      string
	dir       string
	base      string
	validator *validator.Validate
	log       *logrus.Entry
	mu        sync.Mutex
}

// NewJSONRepository creates a repository for the given JSON file path.
// It returns the repository interface to avoid leaking implementation details.
func NewJSONRepository(path string) (Repository, error) {
	if path == "" {
		return nil, errors.New("data file path is required")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "" || dir == "." {
		dir = "."
	}

	return &JSONRepository{
		path:      path,
		dir:       dir,
		base:      base,
		validator: validator.New(),
		log:       logger.WithComponent("json-repo"),
	}, nil
}

// Load reads the data file. A missing, malformed or invalid file yields an empty
// document; only unexpected I/O errors are returned.
func (r *JSONRepository) Load(ctx context.Context) (DataDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.loadUnlocked()
	switch {
	case err == nil:
		return doc, nil
	case errors.Is(err, os.ErrNotExist):
		r.log.Infof("data file %s not found, starting with an empty store", r.path)
		return DataDocument{}, nil
	case errors.Is(err, errMalformed):
		r.log.Warnf("ignoring unreadable data file %s: %v", r.path, err)
		return DataDocument{}, nil
	default:
		return nil, err
	}
}

var errMalformed = errors.New("malformed data file")

// loadUnlocked reads the JSON file without acquiring the lock (caller must hold it).
func (r *JSONRepository) loadUnlocked() (DataDocument, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer file.Close()

	var doc DataDocument
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", errMalformed, err)
	}
	if doc == nil {
		doc = DataDocument{}
	}

	doc.ApplyDefaults()

	// Older files may hold values the API no longer accepts; keep every user.
	if err := r.validate(doc); err != nil {
		r.log.Warnf("data file %s has invalid entries, keeping them: %v", r.path, err)
	}

	return doc, nil
}

func (r *JSONRepository) validate(doc DataDocument) error {
	if r.validator == nil {
		return nil
	}
	for _, id := range doc.SortedIDs() {
		if id <= 0 {
			return fmt.Errorf("invalid user id %d", id)
		}
		if err := r.validator.Struct(doc[id]); err != nil {
			return fmt.Errorf("user %d: %w", id, err)
		}
	}
	return nil
}

// Save writes the document atomically to disk.
// Validation failures are logged, not returned: entries loaded from an older file must
// not block every later save.
func (r *JSONRepository) Save(ctx context.Context, doc DataDocument) error {
	if doc == nil {
		doc = DataDocument{}
	}
	if err := r.validate(doc); err != nil {
		r.log.Warnf("saving document with invalid entries: %v", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveUnlocked(doc)
}

// saveUnlocked writes the document without acquiring the lock (caller must hold it).
func (r *JSONRepository) saveUnlocked(doc DataDocument) error {
	payload, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	tmpFile, err := os.CreateTemp(r.dir, r.base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), r.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}

	return nil
}

// StartWatcher reloads the store when the data file is edited from outside.
// It watches the parent directory (not the file) so atomic replace sequences (temp+rename)
// are still observed. Events are filtered by basename and debounced. Cancel ctx to stop.
func (r *JSONRepository) StartWatcher(ctx context.Context, cacheStore CacheStore) error {
	if cacheStore == nil {
		return errors.New("cache store is required")
	}
	onChange := r.MakeWatcherCallback(cacheStore)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()
		schedule := func() {
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, onChange)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != r.base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.Warnf("watcher error: %v", err)
			}
		}
	}()

	return nil
}

// MakeWatcherCallback returns a callback that reloads the store from disk when
// the file differs and the store has no unsaved changes.
// The store version is read before the disk so a save finishing meanwhile cannot
// be rolled back to the older file content.
func (r *JSONRepository) MakeWatcherCallback(cacheStore CacheStore) func() {
	return func() {
		version := cacheStore.Version()
		if cacheStore.IsDirty() {
			r.log.Debug("disk changed but store has unsaved changes; skipping reload")
			return
		}

		r.mu.Lock()
		diskDoc, err := r.loadUnlocked()
		r.mu.Unlock()
		if err != nil {
			r.log.Warnf("watch reload skipped: %v", err)
			return
		}

		snapshot, err := cacheStore.Snapshot()
		if err != nil {
			r.log.Errorf("watch reload: failed to get snapshot: %v", err)
			return
		}
		if AreDataDocumentsEqual(snapshot, diskDoc) {
			return
		}

		replaced, err := cacheStore.ReplaceIfUnchanged(diskDoc, version)
		if err != nil {
			r.log.Errorf("watch reload: %v", err)
			return
		}
		if !replaced {
			r.log.Debugf("store changed while reading %s (version %d); skipping reload", r.path, version)
			return
		}
		r.log.Infof("store reloaded from %s (%d users)", r.path, len(diskDoc))
	}
}
