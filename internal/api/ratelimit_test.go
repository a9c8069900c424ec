package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLimitedRouter(t *testing.T, handler gin.HandlerFunc) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.POST("/api/query", handler, func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func doQuery(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", http.NoBody)
	if ip != "" {
		req.Header.Set("X-Real-IP", ip)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestQueryLimiter_InMemory(t *testing.T) {
	limiter, err := NewQueryLimiter(2, nil)
	require.NoError(t, err)
	r := buildLimitedRouter(t, limiter)

	assert.Equal(t, http.StatusOK, doQuery(r, "1.2.3.4").Code)
	assert.Equal(t, http.StatusOK, doQuery(r, "1.2.3.4").Code)

	blocked := doQuery(r, "1.2.3.4")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Contains(t, blocked.Body.String(), CodeRateLimited)

	// Other callers keep their own allowance.
	assert.Equal(t, http.StatusOK, doQuery(r, "5.6.7.8").Code)
}

func TestQueryLimiter_SetsHeaders(t *testing.T) {
	limiter, err := NewQueryLimiter(5, nil)
	require.NoError(t, err)
	r := buildLimitedRouter(t, limiter)

	res := doQuery(r, "9.9.9.9")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "5", res.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", res.Header().Get("X-RateLimit-Remaining"))
}

func TestQueryLimiter_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewQueryLimiter(1, client)
	require.NoError(t, err)

	// Two routers share the same Redis counters, as two replicas would.
	a := buildLimitedRouter(t, limiter)
	other, err := NewQueryLimiter(1, client)
	require.NoError(t, err)
	b := buildLimitedRouter(t, other)

	assert.Equal(t, http.StatusOK, doQuery(a, "1.1.1.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doQuery(b, "1.1.1.1").Code)
	assert.NotEmpty(t, mr.Keys())
}

func TestQueryLimiter_RejectsNonPositive(t *testing.T) {
	_, err := NewQueryLimiter(0, nil)
	assert.Error(t, err)
}

func TestQueryLimiter_WiredIntoRouter(t *testing.T) {
	limiter, err := NewQueryLimiter(1, nil)
	require.NoError(t, err)
	env := newTestEnv(t, func(d *Deps) { d.QueryLimiter = limiter })

	first := env.do(queryRequest("q", ""))
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)
	second := env.do(queryRequest("q", ""))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, CodeRateLimited, decodeError(t, second).Code)

	// Ingestion is not capped.
	w := env.do(uploadRequest(t, "a.txt", "text/plain", "hello", ""))
	assert.Equal(t, http.StatusOK, w.Code)
}
