package security

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
	"github.com/ZanzyTHEbar/heartrisk/internal/monitoring"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSecurityConfig(t *testing.T) {
	config := DefaultSecurityConfig()

	assert.Equal(t, 60, config.MaxRequestsPerMin)
	assert.Equal(t, int64(16<<10), config.MaxBodyBytes)
	assert.Contains(t, config.AllowedOrigins, "http://localhost:3000")
	assert.Equal(t, 10*time.Second, config.RequestTimeout)
	assert.False(t, config.EnableHSTS)
}

func newRouter(sm *SecurityMiddleware, handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(apperrors.ErrorHandler())
	r.Use(handlers...)
	r.POST("/api/v1/assess", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetNonce(c))
	})
	return r
}

func TestRateLimitByIP(t *testing.T) {
	config := DefaultSecurityConfig()
	config.MaxRequestsPerMin = 6 // burst floor of 5
	metrics := monitoring.NewMetrics()
	sm := NewSecurityMiddleware(config, metrics)
	router := newRouter(sm, sm.RateLimitByIP)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/assess", strings.NewReader("{}"))
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, send("192.0.2.1").Code, "request %d", i)
	}

	w := send("192.0.2.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "10", w.Header().Get("Retry-After"))

	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CategoryRateLimit, body.Category)

	// other clients keep their own budget
	assert.Equal(t, http.StatusOK, send("192.0.2.2").Code)
	assert.Equal(t, 2, sm.Limiters())
}

func TestRateLimitDisabled(t *testing.T) {
	config := DefaultSecurityConfig()
	config.MaxRequestsPerMin = 0
	sm := NewSecurityMiddleware(config, nil)
	router := newRouter(sm, sm.RateLimitByIP)

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/assess", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 0, sm.Limiters())
}

func TestSweep(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig(), nil)
	now := time.Now()

	sm.limiterFor("192.0.2.1", now.Add(-2*time.Hour))
	sm.limiterFor("192.0.2.2", now)

	assert.Equal(t, 1, sm.Sweep(now.Add(-time.Hour)))
	assert.Equal(t, 1, sm.Limiters())
}

func TestCleanupStopsWithContext(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sm.Cleanup(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Cleanup did not return after cancel")
	}
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		hsts     bool
		wantHSTS bool
	}{
		{"plain http", false, false},
		{"hsts enabled", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultSecurityConfig()
			config.EnableHSTS = tt.hsts
			sm := NewSecurityMiddleware(config, nil)
			router := newRouter(sm, sm.SecurityHeaders)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
			assert.Equal(t, tt.wantHSTS, w.Header().Get("Strict-Transport-Security") != "")
		})
	}
}

func TestValidateContentType(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig(), nil)
	router := newRouter(sm, sm.ValidateContentType)

	tests := []struct {
		contentType string
		want        int
	}{
		{"application/json", http.StatusOK},
		{"application/json; charset=utf-8", http.StatusOK},
		{"application/x-www-form-urlencoded", http.StatusOK},
		{"", http.StatusOK},
		{"text/xml", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/assess", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	config := DefaultSecurityConfig()
	config.RequestTimeout = 2 * time.Second
	sm := NewSecurityMiddleware(config, nil)

	router := gin.New()
	router.Use(sm.RequestTimeout)
	var deadline time.Time
	var ok bool
	router.GET("/", func(c *gin.Context) {
		deadline, ok = c.Request.Context().Deadline()
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
	assert.Equal(t, "2", w.Header().Get("X-Timeout"))
}

func TestCSPMiddleware(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig(), nil)
	router := newRouter(sm, CSPMiddleware(""))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	nonce := w.Body.String()
	require.NotEmpty(t, nonce)
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "'nonce-"+nonce+"'")
	assert.Empty(t, w.Header().Get("Content-Security-Policy-Report-Only"))

	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEqual(t, nonce, w2.Body.String())
}

func TestGenerateNonce(t *testing.T) {
	a, err := GenerateNonce()
	require.NoError(t, err)
	b, err := GenerateNonce()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 44)
}
