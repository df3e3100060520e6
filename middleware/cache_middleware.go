package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/yersultanov/HabitStreakBackend/cache"
	"github.com/yersultanov/HabitStreakBackend/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CachedResponse struct {
	Status      int         `json:"status"`
	ContentType string      `json:"content_type"`
	Body        []byte      `json:"body"`
	Headers     http.Header `json:"headers"`
}

type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyLogWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CacheMiddleware caches successful GET responses in redis, keyed by user and
// URL. Mutating engine calls invalidate via InvalidateHabitCache.
func CacheMiddleware(duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		userID := uint(0)
		if user, ok := CurrentUser(c); ok {
			userID = user.ID
		}

		cacheKey := fmt.Sprintf("cache:%d:%s?%s", userID, c.Request.URL.Path, c.Request.URL.RawQuery)

		var cachedResponse CachedResponse
		if err := cache.Get(cacheKey, &cachedResponse); err == nil {
			for key, values := range cachedResponse.Headers {
				for _, value := range values {
					c.Header(key, value)
				}
			}
			c.Header("X-Cache", "HIT")
			c.Data(cachedResponse.Status, cachedResponse.ContentType, cachedResponse.Body)
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")

		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			cachedResp := CachedResponse{
				Status:      c.Writer.Status(),
				ContentType: c.Writer.Header().Get("Content-Type"),
				Body:        blw.body.Bytes(),
				Headers:     c.Writer.Header(),
			}

			if err := cache.Set(cacheKey, cachedResp, duration); err != nil {
				utils.Logger.Warn("cache_set_failed",
					zap.Error(err),
					zap.String("key", cacheKey),
				)
			}
		}
	}
}

// InvalidateUserCache drops every cached response and listing for one user.
func InvalidateUserCache(userID uint) error {
	if cache.Client == nil {
		return nil
	}
	for _, key := range []string{cache.KeyUserStats(userID), cache.KeyUserHabits(userID)} {
		if err := cache.Delete(key); err != nil {
			return err
		}
	}
	return cache.DeletePattern(fmt.Sprintf("cache:%d:*", userID))
}

// InvalidateHabitCache drops cached reads that a habit mutation makes stale.
func InvalidateHabitCache(userID uint, habitID string) {
	if cache.Client == nil {
		return
	}

	for _, key := range []string{cache.KeyUserStats(userID), cache.KeyUserHabits(userID)} {
		if err := cache.Delete(key); err != nil {
			utils.Logger.Warn("cache_invalidate_failed",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	patterns := []string{
		fmt.Sprintf("cache:%d:*", userID),
		cache.KeyHabitAnalytics(habitID),
	}
	for _, pattern := range patterns {
		if err := cache.DeletePattern(pattern); err != nil {
			utils.Logger.Warn("cache_invalidate_failed",
				zap.String("pattern", pattern),
				zap.Error(err),
			)
		}
	}
}

// RateLimitMiddleware implements a fixed-window per-IP limit backed by redis.
func RateLimitMiddleware(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		key := fmt.Sprintf("rate_limit:%s", clientIP)

		count, err := cache.IncrementCounter(key, window)
		if err != nil {
			// Redis being down should not take requests with it
			utils.Logger.Error("rate_limit_error", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		remaining := maxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if count > int64(maxRequests) {
			utils.Logger.Warn("rate_limit_exceeded",
				zap.String("ip", clientIP),
				zap.Int64("count", count),
			)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
