package echoapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/njia/core"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.2")
	rl.limiters["10.0.0.1"].lastAccess = time.Now().Add(-2 * time.Hour)

	rl.mu.Lock()
	rl.cleanup(time.Now())
	rl.mu.Unlock()

	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "10.0.0.2")
}

func newRateLimitedApp(t *testing.T, rl *RateLimiter, trustedProxies ...string) *echo.Echo {
	t.Helper()
	e := echo.New()
	extractor, err := newIPExtractor(trustedProxies)
	require.NoError(t, err)
	e.IPExtractor = extractor
	e.HTTPErrorHandler = newAppHTTPErrorHandler(new(logMock), core.NewTranslator(), nil)
	e.Use(rateLimitMiddleware(rl))
	e.GET("/", func(ctx echo.Context) error { return ctx.NoContent(http.StatusNoContent) })
	return e
}

func serveFrom(e *echo.Echo, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitMiddleware(t *testing.T) {
	e := newRateLimitedApp(t, NewRateLimiter(0.001, 1))

	assert.Equal(t, http.StatusNoContent, serveFrom(e, "10.0.0.1:4000", "").Code)
	rec := serveFrom(e, "10.0.0.1:4001", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error": "too many requests"}`, rec.Body.String())
	assert.Equal(t, http.StatusNoContent, serveFrom(e, "10.0.0.2:4000", "").Code)
}

func TestRateLimitMiddleware_forwardedFor(t *testing.T) {
	t.Run("untrusted client", func(t *testing.T) {
		rl := NewRateLimiter(0.001, 1)
		e := newRateLimitedApp(t, rl)

		allowed := 0
		for i := 0; i < 50; i++ {
			forged := fmt.Sprintf("198.51.100.%d", i+1)
			if serveFrom(e, "203.0.113.7:5000", forged).Code == http.StatusNoContent {
				allowed++
			}
		}
		assert.Equal(t, 1, allowed)
		assert.Len(t, rl.limiters, 1)
		assert.Contains(t, rl.limiters, "203.0.113.7")
	})

	t.Run("trusted proxy", func(t *testing.T) {
		rl := NewRateLimiter(0.001, 1)
		e := newRateLimitedApp(t, rl, "203.0.113.0/24")

		assert.Equal(t, http.StatusNoContent, serveFrom(e, "203.0.113.7:5000", "198.51.100.1").Code)
		assert.Equal(t, http.StatusNoContent, serveFrom(e, "203.0.113.7:5000", "198.51.100.2").Code)
		assert.Equal(t, http.StatusTooManyRequests, serveFrom(e, "203.0.113.8:5000", "198.51.100.1").Code)
		// a forged first hop behind the proxy does not pick the bucket
		assert.Equal(t, http.StatusTooManyRequests, serveFrom(e, "203.0.113.7:5000", "192.0.2.50, 198.51.100.2").Code)
		assert.Len(t, rl.limiters, 2)
	})
}

func TestNewIPExtractor(t *testing.T) {
	_, err := newIPExtractor([]string{"10.0.0.1", "2001:db8::1", "192.168.0.0/16"})
	assert.NoError(t, err)

	_, err = newIPExtractor([]string{"proxy.local"})
	assert.EqualError(t, err, `invalid trusted proxy "proxy.local/128": invalid CIDR address: proxy.local/128`)
}
