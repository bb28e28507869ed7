package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/anime-shed/note-inspector-go/internal/engine"
	"github.com/anime-shed/note-inspector-go/internal/logger"
	"github.com/anime-shed/note-inspector-go/internal/observer"
	"github.com/anime-shed/note-inspector-go/internal/repository"
)

// CachedReferences is one immutable generation of the reference cache
type CachedReferences struct {
	Set          *engine.ReferenceSet
	Fingerprint  string
	FromSnapshot bool
	CheckedAt    time.Time
}

// ReferenceCache keeps the extracted reference set in memory and swaps it
// atomically when the repository changes. Concurrent rebuilds share one
// extraction.
type ReferenceCache struct {
	repo      repository.ReferenceRepository
	engine    engine.Authenticator
	snapshots *repository.SnapshotStore
	publisher observer.Subject
	refresh   time.Duration
	now       func() time.Time

	current atomic.Pointer[CachedReferences]
	group   singleflight.Group
}

// NewReferenceCache creates a cache that re-checks the repository
// fingerprint at most once per refresh. snapshots and publisher may be nil.
func NewReferenceCache(
	repo repository.ReferenceRepository,
	authenticator engine.Authenticator,
	snapshots *repository.SnapshotStore,
	publisher observer.Subject,
	refresh time.Duration,
) *ReferenceCache {
	return &ReferenceCache{
		repo:      repo,
		engine:    authenticator,
		snapshots: snapshots,
		publisher: publisher,
		refresh:   refresh,
		now:       time.Now,
	}
}

// Peek returns the current generation without touching the repository
func (c *ReferenceCache) Peek() *CachedReferences {
	return c.current.Load()
}

// Get returns a reference set no older than the refresh interval
func (c *ReferenceCache) Get(ctx context.Context) (*engine.ReferenceSet, error) {
	if cur := c.current.Load(); cur != nil && c.now().Sub(cur.CheckedAt) < c.refresh {
		return cur.Set, nil
	}
	entry, err := c.do(ctx, "refresh", false)
	if err != nil {
		return nil, err
	}
	return entry.Set, nil
}

// Reload rebuilds the set from the repository, bypassing the fingerprint
// check and the snapshot
func (c *ReferenceCache) Reload(ctx context.Context) (*CachedReferences, error) {
	return c.do(ctx, "reload", true)
}

func (c *ReferenceCache) do(ctx context.Context, key string, force bool) (*CachedReferences, error) {
	// A caller giving up must not abort a rebuild other callers wait on
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.rebuild(detached, force)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*CachedReferences), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *ReferenceCache) rebuild(ctx context.Context, force bool) (*CachedReferences, error) {
	start := c.now()
	log := logger.FromContext(ctx).WithField("source", c.repo.Source())
	cur := c.current.Load()

	fingerprint, err := c.repo.Fingerprint(ctx)
	if err != nil {
		if cur != nil && !force {
			log.WithError(err).Warn("Reference repository unavailable, serving previous reference set")
			return c.store(cur.Set, cur.Fingerprint, cur.FromSnapshot), nil
		}
		c.publishFailure(ctx, start, err)
		return nil, errors.Join(repository.ErrRepositoryUnavailable, err)
	}

	if !force && cur != nil && cur.Fingerprint == fingerprint {
		return c.store(cur.Set, cur.Fingerprint, cur.FromSnapshot), nil
	}

	snapshotKey := fingerprint + "|" + c.engine.Config().Signature()
	if !force && c.snapshots != nil {
		set, err := c.snapshots.Load(snapshotKey)
		switch {
		case err == nil:
			entry := c.store(set, fingerprint, true)
			log.WithField("references", set.Len()).Info("Reference set restored from snapshot")
			c.publishLoaded(ctx, start, entry)
			return entry, nil
		case errors.Is(err, repository.ErrSnapshotNotFound), errors.Is(err, repository.ErrSnapshotStale):
			log.WithField("snapshot", c.snapshots.Path()).Debug("No usable reference snapshot")
		default:
			log.WithError(err).Warn("Ignoring unreadable reference snapshot")
		}
	}

	images, err := c.repo.LoadReferences(ctx)
	if err != nil {
		c.publishFailure(ctx, start, err)
		return nil, errors.Join(repository.ErrRepositoryUnavailable, err)
	}

	set, err := c.engine.BuildReferenceSet(ctx, images)
	if err != nil {
		if errors.Is(err, engine.ErrNoReferences) {
			c.current.Store(nil)
		}
		c.publishFailure(ctx, start, err)
		return nil, err
	}

	if c.snapshots != nil {
		if err := c.snapshots.Save(snapshotKey, set); err != nil {
			log.WithError(err).Warn("Failed to save reference snapshot")
		}
	}

	entry := c.store(set, fingerprint, false)
	log.WithFields(logrus.Fields{
		"references":  set.Len(),
		"skipped":     len(set.Skipped()),
		"fingerprint": fingerprint,
	}).Info("Reference set loaded")
	c.publishLoaded(ctx, start, entry)
	return entry, nil
}

func (c *ReferenceCache) store(set *engine.ReferenceSet, fingerprint string, fromSnapshot bool) *CachedReferences {
	entry := &CachedReferences{
		Set:          set,
		Fingerprint:  fingerprint,
		FromSnapshot: fromSnapshot,
		CheckedAt:    c.now(),
	}
	c.current.Store(entry)
	return entry
}

func (c *ReferenceCache) publishLoaded(ctx context.Context, start time.Time, entry *CachedReferences) {
	if c.publisher == nil {
		return
	}
	c.publisher.NotifyObservers(ctx, observer.AuthenticationEvent{
		EventType:      observer.ReferencesLoaded,
		Source:         c.repo.Source(),
		ProcessingTime: c.now().Sub(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"references":    entry.Set.Len(),
			"skipped":       len(entry.Set.Skipped()),
			"from_snapshot": entry.FromSnapshot,
		},
	})
}

func (c *ReferenceCache) publishFailure(ctx context.Context, start time.Time, err error) {
	if c.publisher == nil {
		return
	}
	c.publisher.NotifyObservers(ctx, observer.AuthenticationEvent{
		EventType:      observer.ReferencesLoadFailed,
		Source:         c.repo.Source(),
		ProcessingTime: c.now().Sub(start),
		ErrorMessage:   err.Error(),
	})
}
