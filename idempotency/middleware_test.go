package idempotency

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, cfg *Config, opts ...MiddlewareOption) (*gin.Engine, *atomic.Int32) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	idem := newMemoryCoordinator(t, cfg)

	var handled atomic.Int32
	r := gin.New()
	r.Use(idem.GinMiddleware(opts...))

	orderHandler := func(c *gin.Context) {
		handled.Add(1)
		c.JSON(http.StatusCreated, gin.H{"order_id": "ord-1001"})
	}
	r.POST("/api/orders", orderHandler)
	r.POST("/api/payments/capture", func(c *gin.Context) {
		handled.Add(1)
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "card declined"})
	})
	r.GET("/api/orders", func(c *gin.Context) {
		handled.Add(1)
		c.JSON(http.StatusOK, gin.H{"orders": []string{}})
	})
	r.POST("/api/feedback", func(c *gin.Context) {
		handled.Add(1)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r, &handled
}

func doPost(r *gin.Engine, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if key != "" {
		req.Header.Set(DefaultHeaderName, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware_MissingKey(t *testing.T) {
	r, handled := newTestRouter(t, nil)

	w := doPost(r, "/api/orders", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Idempotency-Key header is required"}`, w.Body.String())
	assert.Zero(t, handled.Load(), "handler must not run")
}

func TestMiddleware_MalformedKey(t *testing.T) {
	r, handled := newTestRouter(t, nil)

	w := doPost(r, "/api/orders", "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Idempotency-Key must be a valid UUID v4"}`, w.Body.String())
	assert.Zero(t, handled.Load())
}

func TestMiddleware_ReplayIsByteIdentical(t *testing.T) {
	r, handled := newTestRouter(t, nil)
	key := uuid.New().String()

	first := doPost(r, "/api/orders", key)
	require.Equal(t, http.StatusCreated, first.Code)
	require.EqualValues(t, 1, handled.Load())

	second := doPost(r, "/api/orders", key)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, first.Header().Get("Content-Type"), second.Header().Get("Content-Type"))
	assert.EqualValues(t, 1, handled.Load(), "handler must run exactly once")
}

func TestMiddleware_NonAllowlistedRoutesBypass(t *testing.T) {
	r, handled := newTestRouter(t, nil)

	// 未配置的路由不需要幂等键
	w := doPost(r, "/api/feedback", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// GET 不在默认保护列表中
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.EqualValues(t, 2, handled.Load())
}

func TestMiddleware_NonSuccessResponseReplayed(t *testing.T) {
	r, handled := newTestRouter(t, nil)
	key := uuid.New().String()

	first := doPost(r, "/api/payments/capture", key)
	require.Equal(t, http.StatusPaymentRequired, first.Code)

	second := doPost(r, "/api/payments/capture", key)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.EqualValues(t, 1, handled.Load())
}

func TestMiddleware_ConflictWhileInFlight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	idem := newMemoryCoordinator(t, nil)
	key := uuid.New().String()

	release := make(chan struct{})
	started := make(chan struct{})

	r := gin.New()
	r.Use(idem.GinMiddleware())
	r.POST("/api/orders", func(c *gin.Context) {
		close(started)
		<-release
		c.JSON(http.StatusCreated, gin.H{"order_id": "slow"})
	})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- doPost(r, "/api/orders", key)
	}()

	<-started

	// 首个请求尚未完成，同键请求被拒绝
	w := doPost(r, "/api/orders", key)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"request is still being processed"}`, w.Body.String())

	close(release)
	select {
	case first := <-done:
		assert.Equal(t, http.StatusCreated, first.Code)
	case <-time.After(time.Second):
		t.Fatal("first request did not finish")
	}
}

func TestMiddleware_CustomRoutes(t *testing.T) {
	r, handled := newTestRouter(t, nil, WithRoutes([]Route{
		{Method: http.MethodPost, Path: "/api/feedback"},
	}))

	// 覆盖后默认路由不再受保护
	w := doPost(r, "/api/orders", "")
	assert.Equal(t, http.StatusCreated, w.Code)

	// 自定义路由要求幂等键
	w = doPost(r, "/api/feedback", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.EqualValues(t, 1, handled.Load())
}
