package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/garyjia/notion-invoice/internal/application/service"
	"github.com/garyjia/notion-invoice/internal/domain/apperr"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

const claimsKey = "auth_claims"

const (
	msgMissingToken   = "인증이 필요합니다."
	msgAdminOnly      = "관리자 권한이 없습니다."
	msgTooManyRequest = "요청이 너무 많습니다. 잠시 후 다시 시도하세요."
)

// bearerToken extracts the token of an "Authorization: Bearer <token>" header
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the verified claims on the context.
func AuthMiddleware(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortWithError(c, apperr.Unauthorized("http.auth", msgMissingToken))
			return
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects authenticated requests whose role differs from role.
// It must run after AuthMiddleware.
func RequireRole(role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			abortWithError(c, apperr.Unauthorized("http.role", msgMissingToken))
			return
		}
		if claims.Role != role {
			abortWithError(c, apperr.Forbidden("http.role", msgAdminOnly))
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by AuthMiddleware, or nil
func ClaimsFrom(c *gin.Context) *service.TokenClaims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*service.TokenClaims)
	return claims
}

// RateLimiter limits requests per client IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	logger   Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond float64, burst int, logger Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		logger:   logger,
	}
}

// getLimiter returns the limiter for key, creating it on first use
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Middleware returns the gin handler enforcing the limit
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !rl.getLimiter(key).Allow() {
			rl.logger.Warn("Rate limit exceeded",
				"client_ip", key,
				"path", c.Request.URL.Path,
				"method", c.Request.Method)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{
				Success: false,
				Error:   msgTooManyRequest,
			})
			return
		}
		c.Next()
	}
}

// Cleanup drops all limiters once too many clients have been seen
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

// StartCleanup runs Cleanup every interval until ctx is done
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}
