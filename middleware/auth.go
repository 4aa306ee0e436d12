package middleware

import (
	"net/http"
	"strings"

	moderatorRepo "medichat/database/repository/moderator"
	"medichat/utils"

	"github.com/gin-gonic/gin"
)

// ModeratorAuthMiddleware authenticates staff requests with a JWT whose hash
// matches the moderator's stored session hash. Logging out (or logging in
// elsewhere) rotates the hash and invalidates older tokens immediately.
func ModeratorAuthMiddleware(moderators moderatorRepo.ModeratorRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := utils.ValidateToken(tokenString)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		mod, err := moderators.GetByTokenHash(utils.HashToken(tokenString))
		if err != nil || mod == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token mismatch or moderator not found"})
			return
		}

		c.Set("moderatorID", mod.ID)
		c.Next()
	}
}
