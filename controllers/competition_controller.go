package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
	"github.com/craftora/affiliate_backend/services"
)

type CompetitionController struct {
	service *services.CompetitionService
}

func NewCompetitionController(service *services.CompetitionService) *CompetitionController {
	return &CompetitionController{service: service}
}

// Create opens a new sales competition. Admin only.
func (cc *CompetitionController) Create(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.CreateCompetitionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	competition, err := cc.service.Create(ctx, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Competition created successfully", competition)
}

// Get returns a competition with its wall-clock derived status.
func (cc *CompetitionController) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid competition ID",
		})
	}

	competition, err := cc.service.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Competition retrieved successfully", bson.M{
		"competition": competition,
		"status":      competition.StatusAt(time.Now()),
	})
}

// List returns all competitions with derived statuses.
func (cc *CompetitionController) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	competitions, err := cc.service.List(ctx)
	if err != nil {
		return respondError(c, err)
	}

	now := time.Now()
	items := make([]bson.M, 0, len(competitions))
	for i := range competitions {
		items = append(items, bson.M{
			"competition": competitions[i],
			"status":      competitions[i].StatusAt(now),
		})
	}
	return respondOK(c, "Competitions retrieved successfully", items)
}

// Join enrolls an affiliate into a competition.
func (cc *CompetitionController) Join(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	competitionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid competition ID",
		})
	}
	affiliateID, err := primitive.ObjectIDFromHex(c.QueryParam("affiliateId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid or missing affiliateId",
		})
	}

	participant, err := cc.service.Join(ctx, competitionID, affiliateID)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Joined competition successfully", participant)
}

// Leaderboard returns a paginated ranking for a competition.
func (cc *CompetitionController) Leaderboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid competition ID",
		})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	leaderboard, err := cc.service.Leaderboard(ctx, id, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Leaderboard retrieved successfully", leaderboard)
}

// Settle distributes the prize pool over the final ranking. Admin only.
func (cc *CompetitionController) Settle(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid competition ID",
		})
	}

	winners, err := cc.service.Settle(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Competition settled successfully", winners)
}

// Cancel calls off a competition before it ends. Admin only.
func (cc *CompetitionController) Cancel(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid competition ID",
		})
	}

	competition, err := cc.service.Cancel(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Competition cancelled successfully", competition)
}
