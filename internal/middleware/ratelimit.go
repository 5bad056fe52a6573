package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hotelwizard/internal/pkg/response"
)

// SessionIDKey is the gin context key holding the wizard session id.
const SessionIDKey = "session_id"

type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[key]
	if !ok {
		burst := s.perMin / 6
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMin)), burst)
		s.limiters[key] = l
	}
	return l
}

// RateLimit caps requests per wizard session, falling back to the client IP
// before a session exists.
func RateLimit(perMin int, logger *zap.Logger) gin.HandlerFunc {
	if perMin <= 0 {
		perMin = 30
	}
	store := &limiterStore{limiters: map[string]*rate.Limiter{}, perMin: perMin}

	return func(c *gin.Context) {
		key := c.GetString(SessionIDKey)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !store.get(key).Allow() {
			logger.Warn("rate limit exceeded", zap.String("key", key), zap.String("path", c.FullPath()))
			response.Abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Try again later.")
			return
		}
		c.Next()
	}
}
