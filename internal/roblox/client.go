package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kapu/roblox-profile-go/internal/constants"
	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/kapu/roblox-profile-go/internal/util"
	"github.com/kapu/roblox-profile-go/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client talks to the public Roblox web APIs. Transport failures, 429 and 5xx
// responses are retried with exponential backoff; consecutive failures open
// a circuit breaker.
type Client struct {
	httpClient *http.Client
	endpoints  Endpoints
	limiter    *rate.Limiter
	breaker    *util.CircuitBreaker
	logger     *zap.Logger
	baseDelay  time.Duration
	jitter     time.Duration
}

func NewClient(httpClient *http.Client, endpoints Endpoints, limiter *rate.Limiter, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{
		httpClient: httpClient,
		endpoints:  endpoints,
		limiter:    limiter,
		breaker: util.NewCircuitBreaker("roblox",
			constants.CircuitBreakerConfig.FailureThreshold,
			constants.CircuitBreakerConfig.ResetTimeout,
			logger,
		),
		logger:    logger,
		baseDelay: constants.RetryConfig.BaseDelay,
		jitter:    constants.RetryConfig.Jitter,
	}
}

// ResolveUsername returns the id of username, or found=false when Roblox
// knows no such user.
func (c *Client) ResolveUsername(ctx context.Context, username string) (id int64, found bool, err error) {
	reqURL := c.endpoints.Users + "/usernames/users"
	payload := usernamesRequest{
		Usernames:          []string{username},
		ExcludeBannedUsers: false,
	}

	var resp usernamesResponse
	if err := c.doJSON(ctx, http.MethodPost, reqURL, payload, &resp); err != nil {
		return 0, false, err
	}
	if len(resp.Data) == 0 {
		return 0, false, nil
	}
	return resp.Data[0].ID, true, nil
}

func (c *Client) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	var user domain.User
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/users/%d", c.endpoints.Users, userID), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetFriendsCount(ctx context.Context, userID int64) (*domain.Count, error) {
	return c.getCount(ctx, fmt.Sprintf("%s/users/%d/friends/count", c.endpoints.Friends, userID))
}

func (c *Client) GetFollowersCount(ctx context.Context, userID int64) (*domain.Count, error) {
	return c.getCount(ctx, fmt.Sprintf("%s/users/%d/followers/count", c.endpoints.Friends, userID))
}

func (c *Client) GetFollowingCount(ctx context.Context, userID int64) (*domain.Count, error) {
	return c.getCount(ctx, fmt.Sprintf("%s/users/%d/followings/count", c.endpoints.Friends, userID))
}

func (c *Client) GetGroupRoles(ctx context.Context, userID int64) (*domain.Collection[domain.GroupMembership], error) {
	var groups domain.Collection[domain.GroupMembership]
	reqURL := fmt.Sprintf("%s/users/%d/groups/roles", c.endpoints.Groups, userID)
	if err := c.doJSON(ctx, http.MethodGet, reqURL, nil, &groups); err != nil {
		return nil, err
	}
	return &groups, nil
}

// GetBadges fetches the first page of badges, oldest first.
func (c *Client) GetBadges(ctx context.Context, userID int64) (*domain.Collection[domain.Badge], error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(constants.APIConfig.BadgesPageLimit))
	params.Set("sortOrder", "Asc")

	var badges domain.Collection[domain.Badge]
	reqURL := fmt.Sprintf("%s/users/%d/badges?%s", c.endpoints.Badges, userID, params.Encode())
	if err := c.doJSON(ctx, http.MethodGet, reqURL, nil, &badges); err != nil {
		return nil, err
	}
	return &badges, nil
}

// GetAvatarHeadshot returns the headshot URL, or nil when none is available.
func (c *Client) GetAvatarHeadshot(ctx context.Context, userID int64) (*string, error) {
	params := url.Values{}
	params.Set("userIds", strconv.FormatInt(userID, 10))
	params.Set("size", constants.APIConfig.AvatarSize)
	params.Set("format", "Png")
	params.Set("isCircular", "false")

	var resp thumbnailsResponse
	reqURL := c.endpoints.Thumbnails + "/users/avatar-headshot?" + params.Encode()
	if err := c.doJSON(ctx, http.MethodGet, reqURL, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].ImageURL == "" {
		return nil, nil
	}
	imageURL := resp.Data[0].ImageURL
	return &imageURL, nil
}

func (c *Client) getCount(ctx context.Context, reqURL string) (*domain.Count, error) {
	var count domain.Count
	if err := c.doJSON(ctx, http.MethodGet, reqURL, nil, &count); err != nil {
		return nil, err
	}
	return &count, nil
}

func (c *Client) doJSON(ctx context.Context, method, reqURL string, reqBody, respBody any) error {
	var payload []byte
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return upstreamError(reqURL, 0, err)
		}
		payload = data
	}

	body, err := c.doRequest(ctx, method, reqURL, payload)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return upstreamError(reqURL, 0, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, reqURL string, payload []byte) ([]byte, error) {
	if !c.breaker.CanExecute() {
		retryAfter := c.breaker.RetryAfter()
		c.logger.Warn("Circuit breaker is open", zap.Duration("retry_after", retryAfter))
		return nil, upstreamError(reqURL, 0, fmt.Errorf("circuit breaker open, retry after %s", retryAfter.Round(time.Second)))
	}

	maxAttempts := constants.RetryConfig.MaxAttempts
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.computeDelay(attempt - 1)
			c.logger.Warn("Upstream request failed, retrying",
				zap.String("url", reqURL),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := sleepContext(ctx, delay); err != nil {
				return nil, upstreamError(reqURL, 0, err)
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, upstreamError(reqURL, 0, err)
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
		if err != nil {
			return nil, upstreamError(reqURL, 0, err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, upstreamError(reqURL, 0, err)
			}
			c.breaker.RecordFailure()
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			c.breaker.RecordFailure()
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			c.breaker.RecordFailure()
			lastErr = statusError(resp)
			continue
		case resp.StatusCode >= 400:
			// Client errors are answers, not outages.
			c.breaker.RecordSuccess()
			return nil, upstreamError(reqURL, resp.StatusCode, statusError(resp))
		}

		c.breaker.RecordSuccess()
		return body, nil
	}

	var status int
	if se, ok := lastErr.(*httpStatusError); ok {
		status = se.status
	}
	return nil, upstreamError(reqURL, status, lastErr)
}

func (c *Client) computeDelay(attempt int) time.Duration {
	base := c.baseDelay * time.Duration(math.Pow(2, float64(attempt)))
	jitter := time.Duration(rand.Float64() * float64(c.jitter))
	return base + jitter
}

type httpStatusError struct {
	status int
	text   string
	url    string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("%d %s for url: %s", e.status, e.text, e.url)
}

func statusError(resp *http.Response) *httpStatusError {
	return &httpStatusError{
		status: resp.StatusCode,
		text:   http.StatusText(resp.StatusCode),
		url:    resp.Request.URL.String(),
	}
}

// upstreamError always reports 502 to callers of /api/user; the upstream
// status is kept in the context.
func upstreamError(reqURL string, upstreamStatus int, cause error) *errors.UpstreamError {
	upErr := errors.NewUpstreamError(fmt.Sprintf("Upstream error: %v", cause), reqURL, http.StatusBadGateway, cause)
	if upstreamStatus != 0 {
		upErr.Context["upstream_status"] = upstreamStatus
	}
	return upErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
