package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/craftora/affiliate_backend/controllers"
	"github.com/craftora/affiliate_backend/middleware"
)

// RegisterReferralRoutes sets up click tracking and referral routes
func RegisterReferralRoutes(e *echo.Echo, clickController *controllers.ClickController, referralController *controllers.ReferralController) {
	// Click ingestion is public; visitors following an affiliate link
	// carry no token.
	e.POST("/api/clicks", clickController.RecordClick)

	clicks := e.Group("/api/clicks")
	clicks.Use(middleware.JWTMiddleware())
	clicks.PUT("/:id/convert", clickController.MarkConverted, middleware.RequireUserType("admin"))

	r := e.Group("/api/referrals")
	r.Use(middleware.JWTMiddleware())

	r.POST("", referralController.Record)
	r.POST("/sale", referralController.RecordSale)
	r.GET("/:id", referralController.Get)

	admin := r.Group("", middleware.RequireUserType("admin"))
	admin.PUT("/:id/approve", referralController.Approve)
	admin.PUT("/:id/cancel", referralController.Cancel)
}
