package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/craftora/affiliate_backend/controllers"
	"github.com/craftora/affiliate_backend/middleware"
)

// RegisterCompetitionRoutes sets up sales competition routes
func RegisterCompetitionRoutes(e *echo.Echo, competitionController *controllers.CompetitionController) {
	r := e.Group("/api/competitions")
	r.Use(middleware.JWTMiddleware())

	r.GET("", competitionController.List)
	r.GET("/:id", competitionController.Get)
	r.GET("/:id/leaderboard", competitionController.Leaderboard)
	r.POST("/:id/join", competitionController.Join)

	admin := r.Group("", middleware.RequireUserType("admin"))
	admin.POST("", competitionController.Create)
	admin.PUT("/:id/settle", competitionController.Settle)
	admin.PUT("/:id/cancel", competitionController.Cancel)
}
