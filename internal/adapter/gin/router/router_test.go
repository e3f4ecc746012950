package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-file-service/internal/adapter/gin/handler"
	"user-file-service/internal/adapter/gin/middleware"
	"user-file-service/internal/adapter/storage/memory"
	"user-file-service/internal/usecase/user"
	"user-file-service/pkg/logger"
)

func setupRouter(t *testing.T, rl *middleware.RateLimiter) http.Handler {
	log := zaptest.NewLogger(t)
	uc := user.New(memory.NewStore(), log)
	return SetupRouter(handler.NewUserHandler(uc, log), rl, log)
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := setupRouter(t, nil)

	w := serve(r, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"user-file-service"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))
}

func TestOpenAPIDocument(t *testing.T) {
	r := setupRouter(t, nil)

	w := serve(r, http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		OpenAPI string         `json:"openapi"`
		Paths   map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Contains(t, doc.Paths, "/users")
	assert.Contains(t, doc.Paths, "/users/{id}")
}

func TestSwaggerUI(t *testing.T) {
	r := setupRouter(t, nil)

	w := serve(r, http.MethodGet, "/swagger/index.html", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger")
}

func TestUserRoutes(t *testing.T) {
	r := setupRouter(t, nil)

	w := serve(r, http.MethodPost, "/users", `{"firstName":"Ann","secondName":"Lee","age":30}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1}`, w.Body.String())

	w = serve(r, http.MethodGet, "/users", "")
	assert.JSONEq(t, `{"users":[{"id":1,"firstName":"Ann","secondName":"Lee","age":30}]}`, w.Body.String())

	w = serve(r, http.MethodPut, "/users/1", `{"firstName":"Ann","secondName":"Lee","age":31,"city":"Oslo"}`)
	assert.JSONEq(t, `{"user":{"id":1,"firstName":"Ann","secondName":"Lee","age":31,"city":"Oslo"}}`, w.Body.String())

	w = serve(r, http.MethodDelete, "/users/1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/users/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimitAppliesToUserRoutesOnly(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rl := middleware.NewRateLimiter(client, middleware.RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstCapacity:     1,
		Enabled:           true,
	}, zaptest.NewLogger(t))
	r := setupRouter(t, rl)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/users", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/users", "").Code)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "").Code)
	}
}
