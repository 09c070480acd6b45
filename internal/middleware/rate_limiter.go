package middleware

import (
	"net/http"
	"sync"
	"time"

	"afipws/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// windowEntry tracks request counts per IP within a sliding window.
type windowEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

var (
	loginMap   = make(map[string]*windowEntry)
	loginMapMu sync.Mutex

	apiMap   = make(map[string]*windowEntry)
	apiMapMu sync.Mutex
)

// LoginRateLimiter limits login attempts to 20 per minute per IP. Login
// guards the AFIP credentials behind this API, so it gets its own tighter
// budget.
func LoginRateLimiter() gin.HandlerFunc {
	return limiter(loginMap, &loginMapMu, 20, time.Minute,
		"too many login attempts, retry in a minute")
}

// RateLimiter returns a general-purpose sliding-window rate limiter.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return limiter(apiMap, &apiMapMu, limit, window, "too many requests")
}

func limiter(entries map[string]*windowEntry, mu *sync.Mutex, limit int, window time.Duration, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		entry, exists := entries[ip]
		if !exists {
			entry = &windowEntry{}
			entries[ip] = entry
		}
		mu.Unlock()

		entry.mu.Lock()
		defer entry.mu.Unlock()

		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(window)
		}

		entry.count++
		if entry.count > limit {
			c.Header("Retry-After", entry.windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// Expired entries are purged periodically so IPs that never return do not
// accumulate.

const purgeInterval = 5 * time.Minute

func init() {
	go purgeExpiredEntries()
}

func purgeExpiredEntries() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		purged := purgeMap(loginMap, &loginMapMu, now) + purgeMap(apiMap, &apiMapMu, now)
		if purged > 0 {
			log.Debug().Int("purged", purged).Msg("rate limiter maps purged")
		}
	}
}

func purgeMap(entries map[string]*windowEntry, mu *sync.Mutex, now time.Time) int {
	mu.Lock()
	defer mu.Unlock()

	purged := 0
	for ip, entry := range entries {
		entry.mu.Lock()
		if now.After(entry.windowEnd) {
			delete(entries, ip)
			purged++
		}
		entry.mu.Unlock()
	}
	return purged
}
