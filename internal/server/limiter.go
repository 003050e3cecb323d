package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// CallbackLimiter is a per-IP sliding-window limiter for the provider
// callback route. In-memory: callbacks for one deployment land on one
// instance, and a dropped callback is always recoverable by the sweep.
type CallbackLimiter struct {
	maxReq int
	window time.Duration
	mu     sync.Mutex
	state  map[string][]int64
}

func NewCallbackLimiter(maxReq int, window time.Duration) *CallbackLimiter {
	return &CallbackLimiter{
		maxReq: maxReq,
		window: window,
		state:  make(map[string][]int64),
	}
}

func (l *CallbackLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now().UnixNano()
		cutoff := now - int64(l.window)

		l.mu.Lock()
		var filtered []int64
		for _, ts := range l.state[ip] {
			if ts >= cutoff {
				filtered = append(filtered, ts)
			}
		}
		filtered = append(filtered, now)
		l.state[ip] = filtered
		count := len(filtered)
		l.mu.Unlock()

		if count > l.maxReq {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many callback requests",
			})
			return
		}
		c.Next()
	}
}
