package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/craftora/affiliate_backend/controllers"
	"github.com/craftora/affiliate_backend/middleware"
)

// RegisterPayoutRoutes sets up payout settlement routes
func RegisterPayoutRoutes(e *echo.Echo, payoutController *controllers.PayoutController) {
	r := e.Group("/api/payouts")
	r.Use(middleware.JWTMiddleware())

	r.GET("/:id", payoutController.Get)

	admin := r.Group("", middleware.RequireUserType("admin"))
	admin.POST("", payoutController.Create)
	admin.PUT("/:id/process", payoutController.MarkProcessing)
	admin.PUT("/:id/complete", payoutController.MarkCompleted)
	admin.PUT("/:id/fail", payoutController.MarkFailed)
}
