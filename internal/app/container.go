package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kapu/roblox-profile-go/internal/config"
	"github.com/kapu/roblox-profile-go/internal/roblox"
	"github.com/kapu/roblox-profile-go/internal/server"
	"github.com/kapu/roblox-profile-go/internal/service"
	"github.com/kapu/roblox-profile-go/internal/service/cache"
	"github.com/kapu/roblox-profile-go/internal/service/database"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const limiterPruneInterval = 5 * time.Minute

// Container bundles the assembled backend for the HTTP server.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Profiles *service.ProfileService
	Server   *server.Server

	limiter *server.IPRateLimiter
	closers []func()
}

// Build assembles all infrastructure services. Redis and PostgreSQL are only
// connected when enabled, within ctx; a failed connection aborts the build.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Cache and database
	var profileCache service.ProfileCache
	if cfg.Redis.Enabled {
		cacheSvc, cacheErr := cache.NewCacheService(ctx, cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if cacheErr != nil {
			return nil, fmt.Errorf("failed to create cache service: %w", cacheErr)
		}
		closers = append(closers, func() {
			_ = cacheSvc.Close()
		})
		profileCache = cacheSvc
	}

	var history service.HistoryStore
	if cfg.Postgres.Enabled {
		postgresSvc, dbErr := database.NewPostgresService(ctx, database.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
		}, logger)
		if dbErr != nil {
			return nil, fmt.Errorf("failed to create postgres service: %w", dbErr)
		}
		closers = append(closers, func() {
			_ = postgresSvc.Close()
		})
		history = database.NewHistoryRepository(postgresSvc, logger)
	}

	// Upstream
	robloxClient := roblox.NewClient(
		&http.Client{Timeout: cfg.Roblox.Timeout},
		roblox.DefaultEndpoints(),
		rate.NewLimiter(rate.Limit(cfg.Roblox.RateRPS), cfg.Roblox.RateBurst),
		logger,
	)

	profiles := service.NewProfileService(robloxClient, profileCache, history, cfg.Redis.TTL, logger)

	limiter := server.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	srv := server.New(profiles, limiter, logger)

	logger.Info("Services assembled",
		zap.Bool("cache", profiles.CacheEnabled()),
		zap.Bool("history", profiles.HistoryEnabled()),
	)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Profiles: profiles,
		Server:   srv,
		limiter:  limiter,
		closers:  closers,
	}, nil
}

// NewHTTPServer returns the listener-ready server for Config.Server.Addr.
func (c *Container) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:              c.Config.Server.Addr,
		Handler:           c.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// RunMaintenance prunes idle rate limiters until ctx is done.
func (c *Container) RunMaintenance(ctx context.Context) {
	c.limiter.Run(ctx, limiterPruneInterval)
}

// Close releases the cache and database connections in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
