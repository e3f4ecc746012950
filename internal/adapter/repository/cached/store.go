package cached

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-file-service/internal/adapter/cache"
	domain "user-file-service/internal/domain/user"
	"user-file-service/internal/usecase/user"
	"user-file-service/pkg/logger"
)

// Store implements user.Store with caching support.
// It wraps a persistent store and a cache of the full collection.
type Store struct {
	backing user.Store
	cache   cache.CollectionCache
	log     *zap.Logger
	group   singleflight.Group
}

// NewStore creates a new caching decorator around backing.
func NewStore(backing user.Store, c cache.CollectionCache, log *zap.Logger) *Store {
	return &Store{
		backing: backing,
		cache:   c,
		log:     log,
	}
}

// Load returns the collection using the cache-aside pattern.
func (s *Store) Load(ctx context.Context) (domain.Collection, error) {
	log := logger.WithContext(ctx, s.log)

	cached, err := s.cache.Get(ctx)
	if err != nil {
		log.Warn("cache get error, falling back to store", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	// Single-flight so concurrent misses hit the backing store once. The
	// shared load is detached from the first caller's cancellation.
	sfCtx := context.WithoutCancel(ctx)
	result, err, _ := s.group.Do(cache.DefaultKey, func() (any, error) {
		users, err := s.backing.Load(sfCtx)
		if err != nil {
			return nil, err
		}

		// A save may have landed since the read; its entry wins.
		if _, err := s.cache.SetIfAbsent(sfCtx, users); err != nil {
			log.Warn("failed to cache users", zap.Error(err))
		}
		return users, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers mutate what Load returns; never hand out the shared result.
	return result.(domain.Collection).Clone(), nil
}

// Save writes through to the backing store and then to the cache. When the
// cache write fails the entry is dropped instead.
func (s *Store) Save(ctx context.Context, users domain.Collection) error {
	if err := s.backing.Save(ctx, users); err != nil {
		return err
	}

	log := logger.WithContext(ctx, s.log)
	if err := s.cache.Set(ctx, users); err != nil {
		log.Warn("failed to update cache after save", zap.Error(err))
		if err := s.cache.Invalidate(ctx); err != nil {
			log.Warn("failed to invalidate cache after save", zap.Error(err))
		}
	}
	return nil
}
