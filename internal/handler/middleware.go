package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"linkgate/internal/config"
	"linkgate/internal/metrics"
	"linkgate/pkg/logger"
)

const ownerContextKey = "owner_id"

// LoggerMiddleware logs HTTP requests with structured logging
func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		// Process request
		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		fields := []interface{}{
			"status", statusCode,
			"method", c.Request.Method,
			"path", path,
			"latency", latency,
			"user_agent", c.Request.UserAgent(),
		}
		if errorMessage != "" {
			fields = append(fields, "error", errorMessage)
		}

		// Query strings are left out: they may carry link passwords
		switch {
		case statusCode >= http.StatusInternalServerError:
			log.Errorw("HTTP request", fields...)
		default:
			log.Infow("HTTP request", fields...)
		}
	}
}

// MetricsMiddleware records request counts and latency per route
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPMetrics(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-API-Key"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(cfg.CORSOrigins) == 0
	for _, origin := range cfg.CORSOrigins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
		corsConfig.AllowCredentials = true
	}

	return cors.New(corsConfig)
}

// SecurityHeadersMiddleware adds security-related headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Writer.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data:")
		c.Writer.Header().Set("Referrer-Policy", "no-referrer")

		c.Next()
	}
}

// ipLimiters hands out one token bucket per client IP
type ipLimiters struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	ttl      time.Duration
	lastGC   time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (l *ipLimiters) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Drop idle buckets so the map does not grow with every address ever seen
	if now.Sub(l.lastGC) > l.ttl {
		for key, entry := range l.limiters {
			if now.Sub(entry.lastSeen) > l.ttl {
				delete(l.limiters, key)
			}
		}
		l.lastGC = now
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// RateLimitMiddleware implements IP-based rate limiting
func RateLimitMiddleware(requestsPerMinute int, trustProxy bool) gin.HandlerFunc {
	limiters := &ipLimiters{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    requestsPerMinute,
		ttl:      10 * time.Minute,
		lastGC:   time.Now(),
	}

	return func(c *gin.Context) {
		clientIP := ClientIP(c.Request, trustProxy)

		if !limiters.get(clientIP, time.Now()).Allow() {
			respondError(c, http.StatusTooManyRequests, CodeRateLimitExceeded, "Too many requests, please try again later")
			return
		}

		c.Next()
	}
}

// AuthMiddleware validates API keys and stores the key's owner on the context
func AuthMiddleware(apiKeys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")

		owner, ok := lookupKey(apiKeys, apiKey)
		if !ok {
			respondError(c, http.StatusUnauthorized, CodeUnauthorized, "Valid API key required")
			return
		}

		c.Set(ownerContextKey, owner)
		c.Next()
	}
}

// lookupKey compares against every configured key in constant time
func lookupKey(apiKeys map[string]string, candidate string) (string, bool) {
	if candidate == "" {
		return "", false
	}
	var owner string
	found := false
	for key, keyOwner := range apiKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1 {
			owner = keyOwner
			found = true
		}
	}
	return owner, found
}

// OwnerID returns the owner resolved by AuthMiddleware
func OwnerID(c *gin.Context) string {
	return c.GetString(ownerContextKey)
}

// TimeoutMiddleware sets a timeout for request processing
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
