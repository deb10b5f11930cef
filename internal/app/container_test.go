package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kapu/roblox-profile-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Addr: ":0"},
		Lookup:    config.LookupConfig{BaseURL: "http://localhost:8080"},
		Roblox:    config.RobloxConfig{RateRPS: 10, RateBurst: 20},
		RateLimit: config.RateLimitConfig{RPS: 5, Burst: 10},
	}
}

func TestBuildRejectsMissingInputs(t *testing.T) {
	_, err := Build(context.Background(), nil, zap.NewNop())
	assert.Error(t, err)

	_, err = Build(context.Background(), testConfig(), nil)
	assert.Error(t, err)
}

func TestBuildWithoutStores(t *testing.T) {
	container, err := Build(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer container.Close()

	assert.False(t, container.Profiles.CacheEnabled())
	assert.False(t, container.Profiles.HistoryEnabled())

	httpSrv := container.NewHTTPServer()
	assert.Equal(t, ":0", httpSrv.Addr)

	rec := httptest.NewRecorder()
	httpSrv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","cache":"disabled","history":"disabled"}`, rec.Body.String())
}

func TestBuildWithRedisReportsLiveHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port, TTL: time.Minute}

	container, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer container.Close()
	assert.True(t, container.Profiles.CacheEnabled())

	handler := container.NewHTTPServer().Handler
	healthz := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		return rec
	}

	rec := healthz()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","cache":"up","history":"disabled"}`, rec.Body.String())

	mr.Close()

	rec = healthz()
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","cache":"down","history":"disabled"}`, rec.Body.String())
}

func TestBuildHonoursCancelledContext(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Build(ctx, cfg, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}
