package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/interfaces/http/dto"
)

func TestRateLimiter(t *testing.T) {
	t.Run("bursts up to the limit", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)
		defer limiter.Stop()

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("10.0.0.1"), "attempt %d", i+1)
		}
		assert.False(t, limiter.Allow("10.0.0.1"))
		assert.Equal(t, 0, limiter.Remaining("10.0.0.1"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		defer limiter.Stop()

		assert.True(t, limiter.Allow("auth:10.0.0.1"))
		assert.False(t, limiter.Allow("auth:10.0.0.1"))
		assert.True(t, limiter.Allow("auth:10.0.0.2"))
	})

	t.Run("refills over the window", func(t *testing.T) {
		limiter := NewRateLimiter(2, 100*time.Millisecond)
		defer limiter.Stop()

		assert.True(t, limiter.Allow("k"))
		assert.True(t, limiter.Allow("k"))
		assert.False(t, limiter.Allow("k"))
		assert.Eventually(t, func() bool { return limiter.Allow("k") }, time.Second, 10*time.Millisecond)
	})

	t.Run("concurrent attempts never exceed the burst", func(t *testing.T) {
		limiter := NewRateLimiter(10, time.Hour)
		defer limiter.Stop()

		var allowed atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("shared") {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(10), allowed.Load())
	})

	t.Run("stop twice", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		limiter.Stop()
		assert.NotPanics(t, limiter.Stop)
	})
}

// loginRouter serves the throttled auth endpoints the way the API does
func loginRouter(limiter *RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	ok := func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"access_token": "a", "refresh_token": "r"}))
	}
	router.POST("/api/v1/auth/login", AuthRateLimit(limiter), ok)
	router.POST("/api/v1/auth/refresh", AuthRateLimit(limiter), ok)
	return router
}

func postAuth(router *gin.Engine, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"username":"alice","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthRateLimit_LoginAttempts(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	defer limiter.Stop()
	router := loginRouter(limiter)

	for i, remaining := range []string{"2", "1", "0"} {
		w := postAuth(router, "/api/v1/auth/login", "192.0.2.10:5000")
		require.Equal(t, http.StatusOK, w.Code, "attempt %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, remaining, w.Header().Get("X-RateLimit-Remaining"))
	}

	w := postAuth(router, "/api/v1/auth/login", "192.0.2.10:5001")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TOO_MANY_ATTEMPTS", resp.Error.Code)
	assert.Equal(t, w.Header().Get(RequestIDKey), resp.Error.RequestID)

	assert.Equal(t, http.StatusOK, postAuth(router, "/api/v1/auth/login", "192.0.2.11:5000").Code)
}

func TestAuthRateLimit_RefreshSharesTheLoginBucket(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Stop()
	router := loginRouter(limiter)

	assert.Equal(t, http.StatusOK, postAuth(router, "/api/v1/auth/login", "192.0.2.20:1").Code)
	assert.Equal(t, http.StatusOK, postAuth(router, "/api/v1/auth/refresh", "192.0.2.20:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, postAuth(router, "/api/v1/auth/refresh", "192.0.2.20:1").Code)

	// buckets are keyed apart from plain client IPs
	assert.True(t, limiter.Allow("192.0.2.20"))
}
