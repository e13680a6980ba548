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

type ReferralController struct {
	service *services.ReferralService
}

func NewReferralController(service *services.ReferralService) *ReferralController {
	return &ReferralController{service: service}
}

// Record creates a referral directly from its parts. Used by internal
// callers that already resolved the affiliate.
func (rc *ReferralController) Record(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.RecordReferralRequest
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
	referredUserID, err := primitive.ObjectIDFromHex(req.ReferredUserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid referred user ID",
		})
	}
	var productID *primitive.ObjectID
	if req.ProductID != "" {
		pid, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid product ID",
			})
		}
		productID = &pid
	}

	referral, err := rc.service.Record(ctx, affiliateID, referredUserID, req.SaleAmount, productID, req.ReferralSource)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Referral recorded successfully", referral)
}

// RecordSale ingests a sale-completed event carrying an affiliate code.
func (rc *ReferralController) RecordSale(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var event models.SaleCompletedEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&event); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	referral, err := rc.service.RecordSale(ctx, event)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Sale referral recorded successfully", referral)
}

// Get returns a single referral by ID.
func (rc *ReferralController) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid referral ID",
		})
	}

	referral, err := rc.service.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Referral retrieved successfully", referral)
}

// Approve confirms a pending referral and credits the affiliate. Admin
// only.
func (rc *ReferralController) Approve(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid referral ID",
		})
	}

	referral, err := rc.service.Approve(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Referral approved successfully", referral)
}

// Cancel voids a pending or approved referral. Admin only.
func (rc *ReferralController) Cancel(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid referral ID",
		})
	}

	var req models.CancelReferralRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	referral, err := rc.service.Cancel(ctx, id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Referral cancelled successfully", referral)
}
