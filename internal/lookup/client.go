package lookup

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kapu/roblox-profile-go/internal/constants"
	"github.com/kapu/roblox-profile-go/internal/domain"
	"github.com/kapu/roblox-profile-go/internal/util"
	"github.com/kapu/roblox-profile-go/pkg/errors"
	"go.uber.org/zap"
)

// Client calls GET /api/user on a profile backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a client for baseURL. A zero timeout waits for the
// backend indefinitely; cancellation still flows through the context.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout}, logger)
}

func NewClientWithHTTP(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// LookupURL returns the request URL for an already trimmed query.
func (c *Client) LookupURL(query string) string {
	return c.baseURL + constants.APIConfig.LookupPath + "?query=" + util.EscapeQueryComponent(query)
}

// Lookup resolves query to a profile. Errors are a *errors.ValidationError
// (blank query, nothing sent), *errors.TransportError (no response),
// *errors.MalformedResponseError (body is not the expected JSON, any status)
// or *errors.ApplicationError (JSON response reporting failure).
func (c *Client) Lookup(ctx context.Context, query string) (*domain.ProfileResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewValidationError(constants.Messages.EmptyQuery, "query", query)
	}

	reqURL := c.LookupURL(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.NewTransportError(reqURL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Lookup transport failure", zap.String("url", reqURL), zap.Error(err))
		return nil, errors.NewTransportError(reqURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError(reqURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, err := parseDetail(body)
		if err != nil {
			c.logger.Debug("Lookup failure body unreadable",
				zap.String("url", reqURL),
				zap.Int("status", resp.StatusCode),
				zap.Error(err),
			)
			return nil, errors.NewMalformedResponseError(reqURL, resp.StatusCode, err)
		}
		c.logger.Debug("Lookup rejected",
			zap.String("url", reqURL),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		return nil, errors.NewApplicationError(resp.StatusCode, detail, map[string]any{
			"url": reqURL,
		})
	}

	var result domain.ProfileResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.NewMalformedResponseError(reqURL, resp.StatusCode, err)
	}
	if err := result.Validate(); err != nil {
		return nil, errors.NewMalformedResponseError(reqURL, resp.StatusCode, err)
	}

	return &result, nil
}

// parseDetail extracts a string "detail" field from a JSON failure body.
// Bodies that are not JSON are an error; JSON without a string detail (a
// non-object, a missing field, a validation error list) yields "".
func parseDetail(body []byte) (string, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	object, ok := payload.(map[string]any)
	if !ok {
		return "", nil
	}
	detail, _ := object["detail"].(string)
	return detail, nil
}
