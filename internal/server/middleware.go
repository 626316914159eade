package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	obscontext "github.com/campushq/pulse/internal/observability/context"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerUserID     = "X-User-Id"
	contextUserIDKey = "user_id"
)

// UserRequired resolves the caller from the X-User-Id header set by the
// upstream auth layer. Requests without a usable identity are rejected.
func (s *Server) UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(headerUserID))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserIDKey, snowflake.ID(parsed))
		c.Request = c.Request.WithContext(obscontext.WithUserID(c.Request.Context(), raw))
		c.Next()
	}
}

func currentUser(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(snowflake.ID)
	return id, ok
}

// CallbackRateLimit throttles gateway deliveries per provider and caller
// address. Redis unavailability fails open; dropping a settlement attempt
// is worse than letting one through.
func (s *Server) CallbackRateLimit(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.callbackLimiter.Enabled() {
			c.Next()
			return
		}

		result, err := s.callbackLimiter.Allow(c.Request.Context(), provider, c.ClientIP())
		if err != nil {
			s.log.Warn("callback rate limit check failed",
				zap.String("provider", provider),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !result.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), c.FullPath(), "bucket_empty")
			}
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds())+1, 10))
			}
			AbortWithError(c, ErrRateLimited)
			return
		}

		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), c.FullPath())
		}
		c.Next()
	}
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param(name))
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, ErrInvalidRequest
	}
	return snowflake.ID(parsed), nil
}
