package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/note-inspector-go/internal/engine"
	"github.com/anime-shed/note-inspector-go/internal/repository"
)

func TestReferenceCache_LoadsOnceWithinRefreshInterval(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "500.png", notePNG(t, 8, 1))
	repo := newRepo(dir)
	cache := NewReferenceCache(repo, newEngine(t), nil, nil, time.Hour)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), repo.loads.Load())
	assert.Equal(t, []string{"500"}, first.Labels())
}

func TestReferenceCache_RebuildsWhenFingerprintChanges(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "500.png", notePNG(t, 8, 1))
	repo := newRepo(dir)
	cache := NewReferenceCache(repo, newEngine(t), nil, nil, time.Minute)
	clock := time.Now()
	cache.now = func() time.Time { return clock }

	set, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	// Unchanged repository: re-checked but not rebuilt
	clock = clock.Add(2 * time.Minute)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.loads.Load())

	writeNote(t, dir, "100.png", notePNG(t, 12, 2))
	clock = clock.Add(2 * time.Minute)
	set, err = cache.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), repo.loads.Load())
	assert.Equal(t, []string{"100", "500"}, set.Labels())
}

func TestReferenceCache_ConcurrentGetsShareOneBuild(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "500.png", notePNG(t, 8, 1))
	repo := newRepo(dir)
	repo.delay = 50 * time.Millisecond
	cache := NewReferenceCache(repo, newEngine(t), nil, nil, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), repo.loads.Load())
}

func TestReferenceCache_EmptyRepository(t *testing.T) {
	cache := NewReferenceCache(newRepo(t.TempDir()), newEngine(t), nil, nil, time.Hour)

	_, err := cache.Get(context.Background())

	assert.ErrorIs(t, err, engine.ErrNoReferences)
	assert.Nil(t, cache.Peek())
}

func TestReferenceCache_MissingDirectory(t *testing.T) {
	cache := NewReferenceCache(newRepo(filepath.Join(t.TempDir(), "gone")), newEngine(t), nil, nil, time.Hour)

	_, err := cache.Get(context.Background())

	assert.ErrorIs(t, err, repository.ErrRepositoryUnavailable)
}

func TestReferenceCache_ServesPreviousSetWhenRepositoryDisappears(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "notes")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeNote(t, dir, "500.png", notePNG(t, 8, 1))
	cache := NewReferenceCache(newRepo(dir), newEngine(t), nil, nil, time.Minute)
	clock := time.Now()
	cache.now = func() time.Time { return clock }

	first, err := cache.Get(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))
	clock = clock.Add(2 * time.Minute)
	second, err := cache.Get(context.Background())

	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = cache.Reload(context.Background())
	assert.ErrorIs(t, err, repository.ErrRepositoryUnavailable)
}

func TestReferenceCache_RestoresFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "500.png", notePNG(t, 8, 1))
	snapshots, err := repository.NewSnapshotStore(filepath.Join(t.TempDir(), "refs.snap"))
	require.NoError(t, err)
	defer snapshots.Close()
	eng := newEngine(t)

	warm := NewReferenceCache(newRepo(dir), eng, snapshots, nil, time.Hour)
	built, err := warm.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, warm.Peek().FromSnapshot)

	repo := newRepo(dir)
	cold := NewReferenceCache(repo, eng, snapshots, nil, time.Hour)
	restored, err := cold.Get(context.Background())
	require.NoError(t, err)

	assert.True(t, cold.Peek().FromSnapshot)
	assert.Equal(t, int32(0), repo.loads.Load())
	require.Equal(t, built.Len(), restored.Len())
	assert.Equal(t, built.Notes()[0].Features.Descriptors, restored.Notes()[0].Features.Descriptors)

	// Reload ignores the snapshot
	entry, err := cold.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, entry.FromSnapshot)
	assert.Equal(t, int32(1), repo.loads.Load())
}
