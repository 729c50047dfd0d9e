package middleware

import (
	"net/http"

	"github.com/openwork-hackathon/team-clawctor/internal/utils"
	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	AdminSubjectKey = "admin_subject"
	// AdminRole is the role claim an operator token must carry.
	AdminRole = "admin"
)

// AdminAuthMiddleware validates that the caller holds an admin token signed with secret.
func AdminAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := utils.ExtractToken(c)
		if err != nil {
			utils.Abort(c, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := utils.ValidateToken(secret, tokenString)
		if err != nil {
			utils.Abort(c, http.StatusForbidden, "Invalid or expired token")
			return
		}

		role, ok := claims["role"].(string)
		if !ok || role != AdminRole {
			subject, _ := claims["sub"].(string)
			logger.Log.Warn("Unauthorized admin access attempt",
				zap.String("subject", subject),
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()))
			utils.Abort(c, http.StatusForbidden, "Forbidden: Admins only")
			return
		}

		if subject, ok := claims["sub"].(string); ok {
			c.Set(AdminSubjectKey, subject)
		}
		c.Next()
	}
}
