package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auditorium-netlock/internal/config"
	"github.com/iliyamo/auditorium-netlock/internal/model"
	"github.com/iliyamo/auditorium-netlock/internal/utils"
)

const secret = "mw-secret"

func bearer(t *testing.T, id utils.Identity) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func do(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	g := e.Group("", JWTAuth(secret))
	g.GET("/me", func(c echo.Context) error { return c.String(http.StatusOK, Actor(c)) })
	g.POST("/act", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole(model.RoleOperator))

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", "Bearer garbage").Code)

	viewer := bearer(t, utils.Identity{UserID: 3, Email: "view@example.com", Role: model.RoleViewer})
	rec := do(e, http.MethodGet, "/me", viewer)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "view@example.com", rec.Body.String())
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/act", viewer).Code)

	op := bearer(t, utils.Identity{UserID: 1, Role: model.RoleOperator})
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/act", op).Code)
}

func TestTokenBucketLimits(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip", Prefix: "test:rl",
	}
	e := echo.New()
	e.POST("/act", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/act", "").Code)
	rec := do(e, http.MethodPost, "/act", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(e, http.MethodPost, "/act", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour, Prefix: "rl"}
	e := echo.New()
	e.POST("/act", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/act", "").Code)
	}
}

func TestRedisCacheReplaysResponse(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "test:cache", MaxBodyBytes: 1 << 10,
	}
	calls := 0
	e := echo.New()
	e.GET("/rooms", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewRedisCache(cfg, rdb))

	first := do(e, http.MethodGet, "/rooms", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(e, http.MethodGet, "/rooms", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)

	do(e, http.MethodGet, "/rooms?floor=2", "")
	assert.Equal(t, 2, calls)
}

func TestRedisCacheSkipsErrorsAndLargeBodies(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute,
		Prefix: "test:cache", MaxBodyBytes: 8,
	}
	calls := 0
	e := echo.New()
	e.GET("/big", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "a body longer than eight bytes")
	}, NewRedisCache(cfg, rdb))
	e.GET("/fail", func(c echo.Context) error {
		calls++
		return c.String(http.StatusServiceUnavailable, "no")
	}, NewRedisCache(cfg, rdb))

	do(e, http.MethodGet, "/big", "")
	do(e, http.MethodGet, "/big", "")
	do(e, http.MethodGet, "/fail", "")
	do(e, http.MethodGet, "/fail", "")
	assert.Equal(t, 4, calls)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}
