package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bassista/go_weather/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveDuringReloadStore registers and flushes a user the first time the
// watcher asks whether the store is dirty.
type saveDuringReloadStore struct {
	*Store
	t    *testing.T
	repo repository.Saver
	done bool
}

func (s *saveDuringReloadStore) IsDirty() bool {
	if !s.done {
		s.done = true
		_, err := s.Store.RegisterUser("bob")
		require.NoError(s.t, err)
		require.NoError(s.t, Flush(context.Background(), s.Store, s.repo))
	}
	return s.Store.IsDirty()
}

func TestWatcherReload_KeepsUserSavedDuringReload(t *testing.T) {
	ctx := context.Background()
	repo, err := repository.NewJSONRepository(filepath.Join(t.TempDir(), "database.json"))
	require.NoError(t, err)

	store := NewStore(nil)
	_, err = store.RegisterUser("alice")
	require.NoError(t, err)
	require.NoError(t, Flush(ctx, store, repo))

	wrapped := &saveDuringReloadStore{Store: store, t: t, repo: repo}
	repo.(*repository.JSONRepository).MakeWatcherCallback(wrapped)()

	snap, err := store.Snapshot()
	require.NoError(t, err)
	require.Contains(t, snap, 2)
	assert.Equal(t, "bob", snap[2].Username)

	id, err := store.RegisterUser("carol")
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	onDisk, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, onDisk, 2)
}
