package handlers

import (
	"net/http"
	"time"

	moderatorRepo "medichat/database/repository/moderator"
	"medichat/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const moderatorTokenLifetime = 72 * time.Hour

// LoginModeratorHandler authenticates a staff account and issues a JWT. The
// token's hash is stored so a later login or logout invalidates it.
func LoginModeratorHandler(moderators moderatorRepo.ModeratorRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)

		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		mod, err := moderators.GetByEmail(req.Email)
		if err != nil || mod == nil {
			logger.Warn("Login failed", zap.String("email", req.Email), zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(mod.PasswordHash), []byte(req.Password)); err != nil {
			logger.Warn("Login failed", zap.String("email", req.Email))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := utils.GenerateToken(mod.ID, mod.Email, moderatorTokenLifetime)
		if err != nil {
			logger.Error("Failed to generate token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}
		if err := moderators.SetTokenHash(mod.ID, utils.HashToken(token)); err != nil {
			logger.Error("Failed to store token hash", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":     token,
			"moderator": mod,
		})
	}
}

// LogoutModeratorHandler clears the stored token hash, invalidating the
// current JWT everywhere.
func LogoutModeratorHandler(moderators moderatorRepo.ModeratorRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)
		if err := moderators.SetTokenHash(moderatorID(c), ""); err != nil {
			logger.Error("Failed to clear token hash", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}
