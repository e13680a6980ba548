package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
	"github.com/craftora/affiliate_backend/services"
)

type PayoutController struct {
	service *services.PayoutService
}

func NewPayoutController(service *services.PayoutService) *PayoutController {
	return &PayoutController{service: service}
}

// Create opens a payout covering all unclaimed approved referrals of an
// affiliate. Admin only.
func (pc *PayoutController) Create(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.CreatePayoutRequest
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

	affiliateID, err := primitive.ObjectIDFromHex(req.AffiliateID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid affiliate ID",
		})
	}

	payout, err := pc.service.Create(ctx, affiliateID)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Payout created successfully", payout)
}

// Get returns a single payout by ID.
func (pc *PayoutController) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid payout ID",
		})
	}

	payout, err := pc.service.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Payout retrieved successfully", payout)
}

// MarkProcessing moves a pending payout into processing. Admin only.
func (pc *PayoutController) MarkProcessing(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid payout ID",
		})
	}

	payout, err := pc.service.MarkProcessing(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Payout moved to processing", payout)
}

// MarkCompleted finalizes a processing payout and marks its referrals
// paid. Admin only.
func (pc *PayoutController) MarkCompleted(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid payout ID",
		})
	}

	payout, err := pc.service.MarkCompleted(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Payout completed successfully", payout)
}

// MarkFailed fails a processing payout and releases its referrals back
// to the payable pool. Admin only.
func (pc *PayoutController) MarkFailed(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid payout ID",
		})
	}

	var req models.FailPayoutRequest
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

	payout, err := pc.service.MarkFailed(ctx, id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Payout marked as failed", payout)
}
