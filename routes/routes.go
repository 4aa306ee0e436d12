package routes

import (
	"net/http"
	"time"

	"medichat/handlers"
	"medichat/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterStaffRoutes registers the staff-facing endpoints.
func RegisterStaffRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/staff")
	{
		api.POST("/login", hb.LoginModerator)

		// Protected routes (Require Authentication)
		api.Use(middleware.ModeratorAuthMiddleware(hb.ModeratorRepo))
		api.POST("/logout", hb.LogoutModerator)

		api.POST("/pairing", hb.StartPairing)
		api.GET("/devices", hb.ListDevices)
		api.POST("/devices/:id/revoke", hb.RevokeDevice)
		api.DELETE("/devices/:id", hb.DeleteDevice)

		api.GET("/session", hb.GetSession)
		api.POST("/session/pause", hb.PauseSending)
		api.POST("/session/resume", hb.ResumeSending)
		api.POST("/session/release", hb.ForceRelease)

		api.POST("/messages/:id/send", hb.SendMessage)
		api.POST("/numbers/check", hb.CheckNumber)
	}
}

// RegisterExtensionRoutes registers the endpoints called by the browser
// extension. Everything except pairing requires the device credential.
func RegisterExtensionRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/extension")
	{
		api.POST("/pair", hb.PairDevice)

		api.Use(middleware.DeviceAuthMiddleware(hb.DeviceRepo))
		api.POST("/lease", hb.AcquireLease)
		api.POST("/lease/:id/heartbeat", hb.Heartbeat)
		api.POST("/lease/:id/release", hb.ReleaseLease)

		api.GET("/commands", hb.PollCommands)
		api.POST("/commands/:id/ack", hb.AckCommand)
		api.POST("/commands/:id/complete", hb.CompleteCommand)
		api.POST("/commands/:id/fail", hb.FailCommand)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterStaffRoutes(r, hb)
	RegisterExtensionRoutes(r, hb)
	RegisterHealthRoute(r)
}
