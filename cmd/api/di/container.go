package di

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-file-service/cmd/api/infrastructure"
	"user-file-service/internal/adapter/cache"
	"user-file-service/internal/adapter/db/sqlstore"
	ginhandler "user-file-service/internal/adapter/gin/handler"
	"user-file-service/internal/adapter/gin/middleware"
	"user-file-service/internal/adapter/repository/cached"
	"user-file-service/internal/adapter/storage/jsonfile"
	"user-file-service/internal/adapter/storage/memory"
	"user-file-service/internal/config"
	"user-file-service/internal/usecase/user"
	redisclient "user-file-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client
	Store       user.Store
	UserUC      user.Service
	RateLimiter *middleware.RateLimiter
	GinHandler  *ginhandler.UserHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	store, err := c.newStore(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	if cfg.RedisRequired() {
		rdb, err := infrastructure.NewRedisClient(cfg, l)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		c.RedisClient = rdb
	}

	if cfg.Redis.CacheEnabled {
		collectionCache := cache.NewRedisCollectionCache(
			c.RedisClient.Client,
			cache.DefaultKey,
			time.Duration(cfg.Redis.CacheTTL)*time.Second,
			l,
		)
		store = cached.NewStore(store, collectionCache, l)
	}
	c.Store = store

	var opts []user.Option
	if cfg.Storage.SerializeMutations {
		opts = append(opts, user.WithSerializedMutations())
	}
	c.UserUC = user.New(store, l, opts...)

	if cfg.RateLimit.Enabled {
		c.RateLimiter = middleware.NewRateLimiter(
			c.RedisClient.Client,
			middleware.RateLimiterConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				BurstCapacity:     cfg.RateLimit.BurstCapacity,
				Enabled:           true,
			},
			l,
		)
	}

	c.GinHandler = ginhandler.NewUserHandler(c.UserUC, l)

	l.Info("container initialized",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("cache_enabled", cfg.Redis.CacheEnabled),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Bool("serialize_mutations", cfg.Storage.SerializeMutations),
	)

	return c, nil
}

// newStore builds the backing store for the configured storage driver.
func (c *Container) newStore(ctx context.Context) (user.Store, error) {
	cfg := c.Config

	switch cfg.Storage.Driver {
	case config.StorageFile:
		return jsonfile.NewOS(cfg.Storage.UsersFile, c.Logger), nil
	case config.StorageMemory:
		return memory.NewStore(), nil
	case config.StorageSQLite, config.StoragePostgres:
		db, err := infrastructure.NewDatabase(cfg, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db

		s := sqlstore.New(db, c.Logger)
		if err := s.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
