package routes

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"memberbase/internal/handlers"
	"memberbase/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	verifyHandler *handlers.VerifyHandler,
	userHandler *handlers.UserHandler,
	passwordResetHandler *handlers.PasswordResetHandler,
) *gin.Engine {

	// ---- public, rate-limited (1 req/s sustained, burst of 5 per IP)
	authLimit := middleware.RateLimit(rate.Limit(1), 5)

	r.POST("/register", authLimit, authHandler.Register)
	r.POST("/login", authLimit, authHandler.Login)
	r.POST("/logout", authHandler.Logout)

	r.GET("/verify-email", verifyHandler.ConfirmEmail)
	r.POST("/verify-email/resend", authLimit, verifyHandler.ResendVerification)

	r.POST("/password-reset/request", authLimit, passwordResetHandler.Request)
	r.POST("/password-reset/confirm", authLimit, passwordResetHandler.Confirm)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	// ---- protected
	auth := r.Group("/", middleware.AuthMiddleware())
	{
		auth.GET("/me", userHandler.Me)
	}

	return r
}
