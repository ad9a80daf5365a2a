package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/server/services"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		)
	}
}

// bearer returns the credential from the Authorization header. Both a bare
// token and "Bearer <token>" are accepted.
func bearer(c *gin.Context) (string, bool) {
	v := strings.TrimSpace(c.GetHeader(common.AuthorizationHeaderName))
	if v == "" {
		return "", false
	}
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		v = strings.TrimSpace(v[7:])
	}
	return v, v != ""
}

// requireCredential resolves the bearer credential as class and stores the
// identity on the context.
func (h *Handler) requireCredential(class services.CredentialClass) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, ok := bearer(c)
		if !ok {
			writeMessage(c, http.StatusUnauthorized, msgAuthHeaderMissing)
			return
		}

		id, err := h.credentials.Resolve(c.Request.Context(), cred, class)
		if err != nil {
			h.writeError(c, err)
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

func identity(c *gin.Context) *services.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*services.Identity)
	return id
}

func (h *Handler) rateLimitLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, err := h.limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// fail open
			h.logger.Warn(c.Request.Context(), "login limiter failed", "error", err)
			c.Next()
			return
		}
		if !allowed {
			if retryAfter > 0 {
				c.Header("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
			}
			h.writeError(c, common.E(common.KindRateLimited, "login", nil))
			return
		}
		c.Next()
	}
}
