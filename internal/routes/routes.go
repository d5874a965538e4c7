package routes

import (
	"github.com/gin-gonic/gin"

	"unistay/internal/authz"
	"unistay/internal/handlers"
	"unistay/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	tokens middleware.TokenParser,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	resetHandler *handlers.PasswordResetHandler,
	postHandler *handlers.PostHandler,
	interestHandler *handlers.InterestHandler,
	paymentHandler *handlers.PaymentHandler,
) *gin.Engine {
	api := r.Group("/api")

	// ---- public
	api.GET("/healthz", healthHandler.Healthz)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/google", authHandler.GoogleLogin)
		auth.POST("/forgot-password", resetHandler.ForgotPassword)
		auth.POST("/reset-password", resetHandler.ResetPassword)
	}

	// ---- protected
	protected := api.Group("", middleware.AuthMiddleware(tokens))

	protected.GET("/auth/me", authHandler.Me)

	posts := protected.Group("/posts")
	{
		posts.POST("", middleware.RequireRoles(authz.RoleOwner, authz.RoleAdmin), postHandler.Create)
		posts.GET("", postHandler.List)
		posts.GET("/mine", postHandler.ListMine)
		posts.GET("/:id", postHandler.GetByID)
	}

	interests := protected.Group("/interests")
	{
		interests.POST("", middleware.RequireRoles(authz.RoleStudent), interestHandler.Create)
		interests.GET("/mine", interestHandler.ListMine)
		interests.GET("/received", interestHandler.ListReceived)
		interests.GET("/accepted", interestHandler.ListAwaitingPayment)
		interests.GET("/:id", interestHandler.GetByID)
		interests.GET("/:id/appointment.pdf", interestHandler.AppointmentSheet)
		interests.PUT("/:id/availability", interestHandler.ProposeAvailability)
		interests.PUT("/:id/confirm", interestHandler.ConfirmAppointment)
		interests.PUT("/:id/status", interestHandler.UpdateStatus)
		interests.PUT("/:id/cancel", interestHandler.Cancel)
	}

	protected.POST("/payments", middleware.RequireRoles(authz.RoleOwner, authz.RoleAdmin), paymentHandler.Generate)

	return r
}
