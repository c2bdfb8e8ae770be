package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smart_parking_lot/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func request(r http.Handler, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_PerClientBuckets(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.Use(rl.Limit())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/ping", "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/ping", "10.0.0.1:1001").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(r, http.MethodGet, "/ping", "10.0.0.1:1002").Code)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/ping", "10.0.0.2:1000").Code, "other clients keep their own bucket")
}

func TestRateLimiter_DisabledWithZeroRate(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	r := gin.New()
	r.Use(rl.Limit())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, request(r, http.MethodGet, "/ping", "10.0.0.1:1000").Code)
	}
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	rl.getLimiter("10.0.0.1")
	rl.getLimiter("10.0.0.2")
	require.Len(t, rl.visitors, 2)

	now = now.Add(visitorIdleTTL / 2)
	rl.getLimiter("10.0.0.2")

	now = now.Add(visitorIdleTTL/2 + time.Second)
	rl.getLimiter("10.0.0.3")

	assert.Len(t, rl.visitors, 2)
	assert.NotContains(t, rl.visitors, "10.0.0.1")
	assert.Contains(t, rl.visitors, "10.0.0.2")
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core), metrics.New()))
	r.GET("/lots/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	request(r, http.MethodGet, "/lots/7", "10.0.0.1:1000")
	request(r, http.MethodGet, "/boom", "10.0.0.1:1000")
	request(r, http.MethodGet, "/missing", "10.0.0.1:1000")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "/lots/7", entries[0].ContextMap()["path"])
	assert.EqualValues(t, http.StatusOK, entries[0].ContextMap()["status"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
}

func TestAuthorizeRole_WithoutAuthenticate(t *testing.T) {
	m := NewAuthMiddleware(nil, nil)
	r := gin.New()
	r.GET("/admin", m.AuthorizeRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusForbidden, request(r, http.MethodGet, "/admin", "10.0.0.1:1000").Code)
}

func TestAuthenticate_RejectsMalformedHeader(t *testing.T) {
	m := NewAuthMiddleware(nil, nil)
	r := gin.New()
	r.GET("/secure", m.Authenticate(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, header := range []string{"", "Bearer", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		if header != "" {
			req.Header.Set(AuthorizationHeaderKey, header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}
