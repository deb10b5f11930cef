package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/kapu/roblox-profile-go/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	profileKeyPrefix  = "roblox:profile:"
	usernameKeyPrefix = "roblox:username:"
)

type CacheService struct {
	client *redis.Client
	logger *zap.Logger
}

type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewCacheService connects to Redis and pings it within ctx, bounded by a
// five second timeout.
func NewCacheService(ctx context.Context, cfg CacheConfig, logger *zap.Logger) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewCacheError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
	)

	return &CacheService{
		client: client,
		logger: logger,
	}, nil
}

// ProfileKey is the cache key of an aggregated profile.
func ProfileKey(userID int64) string {
	return profileKeyPrefix + strconv.FormatInt(userID, 10)
}

// UsernameKey is case-insensitive since Roblox usernames are.
func UsernameKey(username string) string {
	return usernameKeyPrefix + strings.ToLower(username)
}

// Get decodes the value at key into dest and reports whether the key existed.
func (c *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.logger.Error("Cache get failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewCacheError("get failed", "get", key, err)
	}

	if err := json.Unmarshal([]byte(value), dest); err != nil {
		c.logger.Error("Cache unmarshal failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewCacheError("unmarshal failed", "get", key, err)
	}
	return true, nil
}

func (c *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheError("marshal failed", "set", key, err)
	}

	if err := c.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		c.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("set failed", "set", key, err)
	}
	return nil
}

func (c *CacheService) Del(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Cache delete failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("delete failed", "del", key, err)
	}
	return nil
}

// GetProfile treats a value that no longer decodes into a complete profile as
// a miss and evicts it.
func (c *CacheService) GetProfile(ctx context.Context, userID int64) (*domain.ProfileResult, bool) {
	key := ProfileKey(userID)

	var result domain.ProfileResult
	found, err := c.Get(ctx, key, &result)
	switch {
	case err == nil && found:
		invalid := result.Validate()
		if invalid == nil {
			return &result, true
		}
		c.evict(ctx, key, invalid)
	case isDecodeError(err):
		c.evict(ctx, key, err)
	}

	c.logger.Debug("Profile cache miss", zap.Int64("user_id", userID))
	return nil, false
}

func (c *CacheService) evict(ctx context.Context, key string, reason error) {
	c.logger.Warn("Evicting unreadable cached profile", zap.String("key", key), zap.Error(reason))
	_ = c.Del(ctx, key)
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return stderrors.As(err, &syntaxErr) || stderrors.As(err, &typeErr)
}

func (c *CacheService) SetProfile(ctx context.Context, userID int64, result *domain.ProfileResult, ttl time.Duration) {
	if err := c.Set(ctx, ProfileKey(userID), result, ttl); err != nil {
		c.logger.Warn("Failed to cache profile", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (c *CacheService) GetUserID(ctx context.Context, username string) (int64, bool) {
	value, err := c.client.Get(ctx, UsernameKey(username)).Result()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (c *CacheService) SetUserID(ctx context.Context, username string, userID int64, ttl time.Duration) {
	key := UsernameKey(username)
	if err := c.client.Set(ctx, key, strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache username", zap.String("key", key), zap.Error(err))
	}
}

// IsConnected pings Redis.
func (c *CacheService) IsConnected(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}

func (c *CacheService) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	c.logger.Info("Redis disconnected")
	return nil
}
