package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"boardly/internal/config"

	"github.com/gin-gonic/gin"
)

func newRateLimitTestRouter(rl config.RateLimitingConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.GetDefaultConfig()
	cfg.Security.RateLimiting = rl
	router := gin.New()
	router.Use(RateLimitMiddleware(cfg))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/automations", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func hitWithKey(router *gin.Engine, path, key string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitBurstExhaustion(t *testing.T) {
	router := newRateLimitTestRouter(config.RateLimitingConfig{
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             2,
		KeyHeader:         "X-API-Key",
	})

	if code := hitWithKey(router, "/ping", "client-a"); code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", code)
	}
	if code := hitWithKey(router, "/ping", "client-a"); code != http.StatusOK {
		t.Fatalf("second request: status = %d, want 200", code)
	}
	if code := hitWithKey(router, "/ping", "client-a"); code != http.StatusTooManyRequests {
		t.Errorf("third request: status = %d, want 429 after burst", code)
	}

	// Another key has its own bucket.
	if code := hitWithKey(router, "/ping", "client-b"); code != http.StatusOK {
		t.Errorf("other client: status = %d, want 200", code)
	}
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	router := newRateLimitTestRouter(config.RateLimitingConfig{Enabled: false})
	for i := 0; i < 10; i++ {
		if code := hitWithKey(router, "/ping", "client-a"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200 (limiting disabled)", i, code)
		}
	}
}

func TestRateLimitWhitelistedKey(t *testing.T) {
	router := newRateLimitTestRouter(config.RateLimitingConfig{
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             1,
		KeyHeader:         "X-API-Key",
		WhitelistKeys:     []string{"trusted"},
	})
	for i := 0; i < 5; i++ {
		if code := hitWithKey(router, "/ping", "trusted"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200 (whitelisted)", i, code)
		}
	}
}

func TestRateLimitPathOverride(t *testing.T) {
	router := newRateLimitTestRouter(config.RateLimitingConfig{
		Enabled:           true,
		RequestsPerMinute: 600,
		Burst:             100,
		KeyHeader:         "X-API-Key",
		Paths: []config.PathRateLimitConfig{
			{Enabled: true, Prefix: "/api/automations", RequestsPerMinute: 60, Burst: 1},
		},
	})

	// The generous global limit still applies off the override prefix.
	for i := 0; i < 5; i++ {
		if code := hitWithKey(router, "/ping", "client-a"); code != http.StatusOK {
			t.Fatalf("global request %d: status = %d, want 200", i, code)
		}
	}

	if code := hitWithKey(router, "/api/automations", "client-a"); code != http.StatusOK {
		t.Fatalf("first override request: status = %d, want 200", code)
	}
	if code := hitWithKey(router, "/api/automations", "client-a"); code != http.StatusTooManyRequests {
		t.Errorf("second override request: status = %d, want 429 (burst 1)", code)
	}
}
