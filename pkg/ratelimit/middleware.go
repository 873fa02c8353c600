package ratelimit

import (
	"fmt"
	"net/http"
	"strings"

	"coursely/internal/shared/utils/response"
	"coursely/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware classifies the route, asks the limiter for a slot, and
// rejects with 429 plus the standard X-RateLimit headers when denied.
func Middleware(rateLimiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limitType := classifyRoute(c.FullPath())

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
		if err != nil {
			// Redis being down must not take the API with it
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime))

		if !result.Allowed {
			logger.GetDefault().LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
			response.RespondJSON(c, "error", http.StatusTooManyRequests,
				"Rate limit exceeded", nil, map[string]interface{}{
					"limit":      result.Limit,
					"reset_time": result.ResetTime,
				})
			c.Abort()
			return
		}

		c.Next()
	}
}

func classifyRoute(path string) RateLimitType {
	switch {
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"),
		strings.HasPrefix(path, "/status"):
		return RateLimitTypeHealth

	// Course lifecycle and fill endpoints
	case strings.Contains(path, "/open-booking"),
		strings.Contains(path, "/close-booking"),
		strings.Contains(path, "/booking-status"),
		strings.Contains(path, "/fill"):
		return RateLimitTypeAdmin

	// Seat allocation flow
	case strings.Contains(path, "/apply"),
		strings.Contains(path, "/book-seat"),
		strings.Contains(path, "/drop"):
		return RateLimitTypeBooking

	// Browsing endpoints
	case strings.Contains(path, "/courses"),
		strings.Contains(path, "/classroom"),
		strings.Contains(path, "/waitlist"),
		strings.Contains(path, "/events"):
		return RateLimitTypePublic

	default:
		return RateLimitTypeDefault
	}
}
