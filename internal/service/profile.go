package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kapu/roblox-profile-go/internal/constants"
	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/kapu/roblox-profile-go/internal/util"
	"github.com/kapu/roblox-profile-go/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// RobloxAPI is the subset of the upstream client the aggregation needs.
type RobloxAPI interface {
	ResolveUsername(ctx context.Context, username string) (int64, bool, error)
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetFriendsCount(ctx context.Context, userID int64) (*domain.Count, error)
	GetFollowersCount(ctx context.Context, userID int64) (*domain.Count, error)
	GetFollowingCount(ctx context.Context, userID int64) (*domain.Count, error)
	GetGroupRoles(ctx context.Context, userID int64) (*domain.Collection[domain.GroupMembership], error)
	GetBadges(ctx context.Context, userID int64) (*domain.Collection[domain.Badge], error)
	GetAvatarHeadshot(ctx context.Context, userID int64) (*string, error)
}

type ProfileCache interface {
	GetProfile(ctx context.Context, userID int64) (*domain.ProfileResult, bool)
	SetProfile(ctx context.Context, userID int64, result *domain.ProfileResult, ttl time.Duration)
	GetUserID(ctx context.Context, username string) (int64, bool)
	SetUserID(ctx context.Context, username string, userID int64, ttl time.Duration)
	IsConnected(ctx context.Context) bool
}

type HistoryStore interface {
	Record(ctx context.Context, query string, user *domain.User) error
	Recent(ctx context.Context, limit int) ([]*domain.LookupRecord, error)
	Ping(ctx context.Context) error
}

// ProfileService aggregates a Roblox user's public profile. cache and
// history are optional.
type ProfileService struct {
	api        RobloxAPI
	cache      ProfileCache
	history    HistoryStore
	profileTTL time.Duration
	logger     *zap.Logger
}

func NewProfileService(api RobloxAPI, cache ProfileCache, history HistoryStore, profileTTL time.Duration, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if profileTTL <= 0 {
		profileTTL = constants.CacheTTL.Profile
	}
	return &ProfileService{
		api:        api,
		cache:      cache,
		history:    history,
		profileTTL: profileTTL,
		logger:     logger,
	}
}

func (s *ProfileService) CacheEnabled() bool   { return s.cache != nil }
func (s *ProfileService) HistoryEnabled() bool { return s.history != nil }

// Health checks the configured stores against the live connections.
func (s *ProfileService) Health(ctx context.Context) domain.Health {
	health := domain.Health{Cache: domain.StatusDisabled, History: domain.StatusDisabled}

	if s.cache != nil {
		health.Cache = domain.StatusUp
		if !s.cache.IsConnected(ctx) {
			health.Cache = domain.StatusDown
		}
	}

	if s.history != nil {
		health.History = domain.StatusUp
		if err := s.history.Ping(ctx); err != nil {
			s.logger.Warn("History store unreachable", zap.Error(err))
			health.History = domain.StatusDown
		}
	}

	return health
}

// Lookup resolves query (a user id or a username) and fetches the profile.
// Errors carry the HTTP status the backend answers with.
func (s *ProfileService) Lookup(ctx context.Context, query string) (*domain.ProfileResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, errors.NewValidationError(constants.Messages.EmptyQueryAPI, "query", query)
	}

	userID, err := s.resolve(ctx, q)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, ok := s.cache.GetProfile(ctx, userID); ok {
			s.logger.Debug("Profile served from cache", zap.Int64("user_id", userID))
			s.record(ctx, q, cached.User)
			return cached, nil
		}
	}

	result, err := s.fetch(ctx, userID)
	if err != nil {
		s.logger.Warn("Profile fetch failed",
			zap.String("query", q),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetProfile(ctx, userID, result, s.profileTTL)
	}
	s.record(ctx, q, result.User)

	s.logger.Info("Profile looked up",
		zap.String("query", q),
		zap.Int64("user_id", userID),
	)
	return result, nil
}

// History returns recent lookups, newest first.
func (s *ProfileService) History(ctx context.Context, limit int) ([]*domain.LookupRecord, error) {
	if s.history == nil {
		return nil, errors.NewNotFoundError("History is disabled", "")
	}
	records, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, errors.NewServiceError("Failed to load history", "history", "recent", err)
	}
	return records, nil
}

func (s *ProfileService) resolve(ctx context.Context, q string) (int64, error) {
	if util.IsDigits(q) {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			return 0, errors.NewValidationError(fmt.Sprintf("Invalid user id: %s", q), "query", q)
		}
		return id, nil
	}

	if s.cache != nil {
		if id, ok := s.cache.GetUserID(ctx, q); ok {
			return id, nil
		}
	}

	id, found, err := s.api.ResolveUsername(ctx, q)
	if err != nil {
		return 0, asUpstream(err)
	}
	if !found {
		return 0, errors.NewNotFoundError(constants.Messages.UserNotFound, q)
	}

	if s.cache != nil {
		s.cache.SetUserID(ctx, q, id, constants.CacheTTL.UsernameToID)
	}
	return id, nil
}

// fetch runs every upstream call concurrently; the first failure cancels the
// rest.
func (s *ProfileService) fetch(ctx context.Context, userID int64) (*domain.ProfileResult, error) {
	result := &domain.ProfileResult{}
	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError().WithFirstError()

	p.Go(func(ctx context.Context) error {
		user, err := s.api.GetUser(ctx, userID)
		result.User = user
		return err
	})
	p.Go(func(ctx context.Context) error {
		count, err := s.api.GetFriendsCount(ctx, userID)
		result.Friends = count
		return err
	})
	p.Go(func(ctx context.Context) error {
		count, err := s.api.GetFollowersCount(ctx, userID)
		result.Followers = count
		return err
	})
	p.Go(func(ctx context.Context) error {
		count, err := s.api.GetFollowingCount(ctx, userID)
		result.Following = count
		return err
	})
	p.Go(func(ctx context.Context) error {
		groups, err := s.api.GetGroupRoles(ctx, userID)
		result.Groups = groups
		return err
	})
	p.Go(func(ctx context.Context) error {
		badges, err := s.api.GetBadges(ctx, userID)
		result.Badges = badges
		return err
	})
	p.Go(func(ctx context.Context) error {
		avatar, err := s.api.GetAvatarHeadshot(ctx, userID)
		result.Avatar = avatar
		return err
	})

	if err := p.Wait(); err != nil {
		return nil, asUpstream(err)
	}
	if err := result.Validate(); err != nil {
		return nil, asUpstream(err)
	}
	return result, nil
}

func (s *ProfileService) record(ctx context.Context, query string, user *domain.User) {
	if s.history == nil || user == nil {
		return
	}
	if err := s.history.Record(ctx, query, user); err != nil {
		s.logger.Warn("Failed to record lookup", zap.String("query", query), zap.Error(err))
	}
}

func asUpstream(err error) error {
	var upErr *errors.UpstreamError
	if stderrors.As(err, &upErr) {
		return upErr
	}
	return errors.NewUpstreamError(fmt.Sprintf("Upstream error: %v", err), "", http.StatusBadGateway, err)
}
