package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// limitedRouter mounts GET /definitions behind the given rate limit middleware.
func limitedRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/definitions", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func getDefinitions(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/definitions", nil)
	req.RemoteAddr = "192.168.1.50:12345"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("requests within limit pass", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow("branch-1"), "request %d should be allowed", i+1)
		}
	})

	t.Run("request past the limit is blocked", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("branch-2"))
		}

		assert.False(t, limiter.Allow("branch-2"))
	})

	t.Run("each key has its own budget", func(t *testing.T) {
		limiter := NewRateLimiter(2, time.Minute)

		assert.True(t, limiter.Allow("branch-a"))
		assert.True(t, limiter.Allow("branch-a"))
		assert.False(t, limiter.Allow("branch-a"))

		assert.True(t, limiter.Allow("branch-b"))
		assert.True(t, limiter.Allow("branch-b"))
	})

	t.Run("budget refills after the window", func(t *testing.T) {
		limiter := NewRateLimiter(2, 50*time.Millisecond)

		assert.True(t, limiter.Allow("branch-3"))
		assert.True(t, limiter.Allow("branch-3"))
		assert.False(t, limiter.Allow("branch-3"))

		time.Sleep(60 * time.Millisecond)

		assert.True(t, limiter.Allow("branch-3"))
	})
}

func TestRateLimiter_Remaining(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute)

	assert.Equal(t, 5, limiter.Remaining("fresh-key"))

	limiter.Allow("fresh-key")
	limiter.Allow("fresh-key")

	assert.Equal(t, 3, limiter.Remaining("fresh-key"))
}

func TestRateLimiter_ConcurrentAllow(t *testing.T) {
	limiter := NewRateLimiter(100, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("shared-key") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowed)
}

func TestRateLimiter_Stop(t *testing.T) {
	limiter := NewRateLimiter(2, 10*time.Millisecond)

	assert.True(t, limiter.Allow("branch"))
	limiter.Stop()

	// Stop only ends the cleanup goroutine, requests keep flowing.
	assert.True(t, limiter.Allow("branch"))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("requests within limit pass", func(t *testing.T) {
		router := limitedRouter(RateLimit(NewRateLimiter(3, time.Minute)))

		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, getDefinitions(router, nil).Code)
		}
	})

	t.Run("returns 429 past the limit", func(t *testing.T) {
		router := limitedRouter(RateLimit(NewRateLimiter(2, time.Minute)))

		for i := 0; i < 2; i++ {
			assert.Equal(t, http.StatusOK, getDefinitions(router, nil).Code)
		}

		w := getDefinitions(router, nil)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("keys include the tenant", func(t *testing.T) {
		router := limitedRouter(RateLimit(NewRateLimiter(1, time.Minute)))

		// Tenant A spends its single token, then is blocked from the
		// same client address.
		w := getDefinitions(router, map[string]string{"X-Tenant-ID": "tenant-a"})
		assert.Equal(t, http.StatusOK, w.Code)

		w = getDefinitions(router, map[string]string{"X-Tenant-ID": "tenant-a"})
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		// Tenant B from the same address still has its own budget.
		w = getDefinitions(router, map[string]string{"X-Tenant-ID": "tenant-b"})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimitByKey(t *testing.T) {
	byUser := func(c *gin.Context) string {
		return c.GetHeader("X-User-ID")
	}
	router := limitedRouter(RateLimitByKey(NewRateLimiter(1, time.Minute), byUser))

	w := getDefinitions(router, map[string]string{"X-User-ID": "teller-1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = getDefinitions(router, map[string]string{"X-User-ID": "teller-1"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = getDefinitions(router, map[string]string{"X-User-ID": "teller-2"})
	assert.Equal(t, http.StatusOK, w.Code)
}
