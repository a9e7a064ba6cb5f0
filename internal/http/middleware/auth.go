package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/wikigraph-backend/internal/auth"
	"github.com/yungbote/wikigraph-backend/internal/http/response"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

const AdminSubjectKey = "admin_subject"

var errMissingToken = errors.New("missing or invalid token")

// RequireAdmin admits requests bearing an admin token signed with secret.
// With no secret configured every request is refused.
func RequireAdmin(log *logger.Logger, secret string) gin.HandlerFunc {
	log = log.With("middleware", "RequireAdmin")
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errMissingToken)
			c.Abort()
			return
		}
		claims, err := auth.ParseAdminToken(secret, tokenString)
		if err != nil {
			log.Warn("Rejected admin request", "path", c.FullPath(), "error", err)
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
			c.Abort()
			return
		}
		c.Set(AdminSubjectKey, claims.Subject)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if q := c.Query("token"); q != "" {
		return q
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
