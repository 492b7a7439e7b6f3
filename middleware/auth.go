package middleware

import (
	"net/http"
	"strings"

	"clouddrive/repositories"
	"clouddrive/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token and rejects tokens revoked via
// logout. It stores user_id, user_email and the raw token on the context.
func AuthMiddleware(blacklist repositories.TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Error(c, http.StatusUnauthorized, "malformed authorization header")
			c.Abort()
			return
		}
		token := parts[1]

		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.Contains(c.Request.Context(), token)
			if err == nil && revoked {
				utils.Error(c, http.StatusUnauthorized, "token has been revoked")
				c.Abort()
				return
			}
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("token", token)
		c.Next()
	}
}
