package security

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
	"github.com/ZanzyTHEbar/heartrisk/internal/monitoring"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	MaxRequestsPerMin int           `yaml:"max_requests_per_min"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	TrustedProxies    []string      `yaml:"trusted_proxies"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	EnableHSTS        bool          `yaml:"enable_hsts"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxBodyBytes:      16 << 10,
		MaxRequestsPerMin: 60,
		AllowedOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
		TrustedProxies:    []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		RequestTimeout:    10 * time.Second,
	}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SecurityMiddleware provides the request guards in front of the assessment
// routes.
type SecurityMiddleware struct {
	config  SecurityConfig
	metrics *monitoring.Metrics

	mu         sync.Mutex
	ipLimiters map[string]*ipLimiter
}

// NewSecurityMiddleware creates a new security middleware instance. metrics
// may be nil.
func NewSecurityMiddleware(config SecurityConfig, metrics *monitoring.Metrics) *SecurityMiddleware {
	return &SecurityMiddleware{
		config:     config,
		metrics:    metrics,
		ipLimiters: make(map[string]*ipLimiter),
	}
}

func (sm *SecurityMiddleware) limiterFor(ip string, now time.Time) *rate.Limiter {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	entry, ok := sm.ipLimiters[ip]
	if !ok {
		rps := rate.Limit(float64(sm.config.MaxRequestsPerMin) / 60.0)
		// Allow burst of up to half the requests per minute for initial allowance
		burst := sm.config.MaxRequestsPerMin / 2
		if burst < 5 {
			burst = 5
		}
		entry = &ipLimiter{limiter: rate.NewLimiter(rps, burst)}
		sm.ipLimiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// retryAfter is the time for one token to refill, in whole seconds
func (sm *SecurityMiddleware) retryAfter() string {
	if sm.config.MaxRequestsPerMin <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(60.0 / float64(sm.config.MaxRequestsPerMin))))
}

// RateLimitByIP implements per-IP rate limiting. A non-positive
// MaxRequestsPerMin disables it.
func (sm *SecurityMiddleware) RateLimitByIP(c *gin.Context) {
	if sm.config.MaxRequestsPerMin <= 0 {
		c.Next()
		return
	}

	if !sm.limiterFor(c.ClientIP(), time.Now()).Allow() {
		sm.metrics.IncrementRateLimitBlock()
		retry := sm.retryAfter()
		c.Header("Retry-After", retry)
		_ = c.Error(apperrors.NewRateLimitError(retry))
		c.Abort()
		return
	}

	c.Next()
}

// Sweep drops limiters for IPs not seen since before cutoff and returns how
// many were removed.
func (sm *SecurityMiddleware) Sweep(cutoff time.Time) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	for ip, entry := range sm.ipLimiters {
		if entry.lastSeen.Before(cutoff) {
			delete(sm.ipLimiters, ip)
			removed++
		}
	}
	return removed
}

// Cleanup sweeps idle limiters every interval until ctx is done
func (sm *SecurityMiddleware) Cleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			sm.Sweep(now.Add(-interval))
		}
	}
}

// SecurityHeaders adds security headers to responses
func (sm *SecurityMiddleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

	if sm.config.EnableHSTS || c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	c.Next()
}

// ValidateContentType rejects bodies that are neither JSON nor form-encoded
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	if contentType == "" || c.Request.Method == http.MethodGet {
		c.Next()
		return
	}

	for _, allowed := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if strings.Contains(contentType, allowed) {
			c.Next()
			return
		}
	}

	c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, apperrors.ErrorResponse{
		Error:     "unsupported content type",
		Code:      "UNSUPPORTED_MEDIA_TYPE",
		Category:  apperrors.CategoryValidation,
		RequestID: c.GetString("request_id"),
	})
}

// LimitBody caps the request body at MaxBodyBytes
func (sm *SecurityMiddleware) LimitBody(c *gin.Context) {
	if sm.config.MaxBodyBytes > 0 && c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	}
	c.Next()
}

// RequestTimeout bounds the request context, and with it the wait for an
// inference slot.
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	if sm.config.RequestTimeout <= 0 {
		c.Next()
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}

// Limiters reports how many per-IP limiters are live
func (sm *SecurityMiddleware) Limiters() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.ipLimiters)
}
