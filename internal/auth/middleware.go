package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rollcall/internal/apperr"
	"rollcall/internal/logging"
	"rollcall/internal/metrics"
	"rollcall/internal/model"
	"rollcall/internal/observability"
)

const principalKey = "principal"

// Guard requires "<scheme> <token>" in the Authorization header and stores the
// validated principal in the gin context. Every authentication failure gets the
// same 401 body; the reason is only logged.
func Guard(svc TokenService, log *zap.Logger) gin.HandlerFunc {
	log = logging.OrNop(log)
	return func(c *gin.Context) {
		token, reason := extractToken(c.GetHeader("Authorization"), svc.Scheme())
		if reason != "" {
			reject(c, log, reason)
			return
		}
		p, err := svc.Validate(c.Request.Context(), token)
		switch {
		case errors.Is(err, apperr.ErrWrongTokenType):
			reject(c, log, "wrong_token_type")
			return
		case errors.Is(err, apperr.ErrUnauthenticated):
			reject(c, log, "invalid_token")
			return
		case err != nil:
			log.Error("token validation failed", zap.Error(err))
			observability.CaptureErr(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Guard.
func PrincipalFrom(c *gin.Context) (model.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return model.Principal{}, false
	}
	p, ok := v.(model.Principal)
	return p, ok
}

// extractToken returns the token, or a non-empty rejection reason.
func extractToken(header, scheme string) (string, string) {
	if strings.TrimSpace(header) == "" {
		return "", "missing_header"
	}
	parts := strings.Fields(header)
	if parts[0] != scheme {
		return "", "bad_scheme"
	}
	switch len(parts) {
	case 1:
		return "", "missing_token"
	case 2:
		return parts[1], ""
	default:
		return "", "malformed_header"
	}
}

func reject(c *gin.Context, log *zap.Logger, reason string) {
	metrics.AuthRejections.WithLabelValues(reason).Inc()
	log.Debug("request rejected by auth guard",
		zap.String("reason", reason),
		zap.String("path", c.FullPath()),
		zap.String("client_ip", c.ClientIP()))
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}
