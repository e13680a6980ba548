package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/craftora/affiliate_backend/controllers"
	"github.com/craftora/affiliate_backend/middleware"
)

// RegisterAffiliateRoutes sets up affiliate enrollment and admin routes
func RegisterAffiliateRoutes(e *echo.Echo, affiliateController *controllers.AffiliateController) {
	r := e.Group("/api/affiliates")
	r.Use(middleware.JWTMiddleware())

	// Self-service routes for the authenticated user
	r.POST("", affiliateController.Register)
	r.GET("", affiliateController.Dashboard)
	r.GET("/qrcode", affiliateController.QRCode)

	// Admin routes
	admin := r.Group("", middleware.RequireUserType("admin"))
	admin.GET("/:id", affiliateController.Get)
	admin.PUT("/:id/suspend", affiliateController.Suspend)
	admin.PUT("/:id/reactivate", affiliateController.Reactivate)
	admin.PUT("/:id/rate", affiliateController.AdjustRate)
	admin.GET("/:id/reconcile", affiliateController.Reconcile)
}
