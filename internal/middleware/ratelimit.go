package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// LimiterStore maintains per-key rate limiters and performs periodic
// cleanup of idle entries.
type LimiterStore struct {
	mu              sync.Mutex
	limit           rate.Limit
	burst           int
	clients         map[string]*clientEntry
	cleanupInterval time.Duration
	stopCh          chan struct{}
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiterStore creates a store allowing limitPerMinute events per key
// with the given burst capacity.
func NewLimiterStore(limitPerMinute int, burst int, cleanupInterval time.Duration) *LimiterStore {
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	s := &LimiterStore{
		limit:           rate.Every(time.Minute / time.Duration(limitPerMinute)),
		burst:           burst,
		clients:         map[string]*clientEntry{},
		cleanupInterval: cleanupInterval,
		stopCh:          make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *LimiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-10 * time.Minute)
			s.mu.Lock()
			for k, v := range s.clients {
				if v.lastSeen.Before(cutoff) {
					delete(s.clients, k)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops internal goroutines (useful for tests).
func (s *LimiterStore) Stop() {
	close(s.stopCh)
}

// Allow reports whether an event for key is within the limit.
func (s *LimiterStore) Allow(key string) bool {
	s.mu.Lock()
	entry, ok := s.clients[key]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = entry
	}
	entry.lastSeen = time.Now()
	s.mu.Unlock()

	return entry.limiter.Allow()
}

// PerUserRateLimit throttles the request by the authenticated user id.
// Unauthenticated requests pass through; Auth rejects them later.
func PerUserRateLimit(store *LimiterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDContextKey)
		if userID != "" && !store.Allow(userID) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
