package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/users/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func get(r *gin.Engine, path, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_WithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 10, BurstCapacity: 10, Enabled: true}, zaptest.NewLogger(t))
	r := newRouter(rl.Handler())

	for i := 0; i < 5; i++ {
		w := get(r, "/users/1", "")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should succeed", i+1)
	}
}

func TestRateLimiter_ExceedsBurst(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 0.001, BurstCapacity: 3, Enabled: true}, zaptest.NewLogger(t))
	r := newRouter(rl.Handler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/users/1", "").Code)
	}

	w := get(r, "/users/2", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "same route template shares a bucket")
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRateLimiter_SeparateClients(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 0.001, BurstCapacity: 1, Enabled: true}, zaptest.NewLogger(t))
	r := newRouter(rl.Handler())

	assert.Equal(t, http.StatusOK, get(r, "/users/1", "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/users/1", "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, get(r, "/users/1", "10.0.0.2:1000").Code)
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 0.001, BurstCapacity: 1, Enabled: false}, zaptest.NewLogger(t))
	r := newRouter(rl.Handler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/users/1", "").Code)
	}
	assert.Empty(t, mr.Keys())
}

func TestRateLimiter_NilPassesThrough(t *testing.T) {
	var rl *RateLimiter
	r := newRouter(rl.Handler())

	assert.Equal(t, http.StatusOK, get(r, "/users/1", "").Code)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 1, Enabled: true}, zaptest.NewLogger(t))
	r := newRouter(rl.Handler())

	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/users/1", "").Code)
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := newRouter(Recovery(zap.New(core)))

	w := get(r, "/panic", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error","message":"An internal error occurred"}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)
	r := newRouter(Recovery(log), Logger(log))

	get(r, "/users/1", "")
	get(r, "/missing", "")

	entries := logs.FilterMessage("http request").All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zap.InfoLevel, entries[0].Level)
		assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
		assert.Equal(t, zap.WarnLevel, entries[1].Level)
		assert.Equal(t, "/missing", entries[1].ContextMap()["path"])
	}
}
