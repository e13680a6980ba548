package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/middleware"
	"github.com/craftora/affiliate_backend/models"
	"github.com/craftora/affiliate_backend/services"
	"github.com/craftora/affiliate_backend/utils"
)

type AffiliateController struct {
	service *services.AffiliateService
}

func NewAffiliateController(service *services.AffiliateService) *AffiliateController {
	return &AffiliateController{service: service}
}

// tokenUserID extracts the caller's user ID from the JWT and parses it
// into an ObjectID.
func tokenUserID(c echo.Context) (primitive.ObjectID, error) {
	userID, err := middleware.GetUserIDFromToken(c)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return primitive.ObjectIDFromHex(userID)
}

// Register enrolls the authenticated user into the affiliate program.
func (ac *AffiliateController) Register(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := tokenUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or missing token",
		})
	}

	var req models.RegisterAffiliateRequest
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

	affiliate, err := ac.service.Register(ctx, userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Affiliate registered successfully", affiliate)
}

// Dashboard returns the caller's affiliate summary.
func (ac *AffiliateController) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := tokenUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or missing token",
		})
	}

	dashboard, err := ac.service.Dashboard(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Dashboard retrieved successfully", dashboard)
}

// QRCode renders the caller's referral link as a base64 PNG QR code.
func (ac *AffiliateController) QRCode(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	userID, err := tokenUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or missing token",
		})
	}

	link, err := ac.service.ReferralLink(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	qr, err := utils.GenerateQRCodeBase64(link)
	if err != nil {
		return respondError(c, models.StorageError("generate qr code", err))
	}
	return respondOK(c, "QR code generated successfully", bson.M{
		"referralLink": link,
		"qrCode":       qr,
	})
}

// Get returns a single affiliate by ID. Admin only.
func (ac *AffiliateController) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid affiliate ID",
		})
	}

	affiliate, err := ac.service.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Affiliate retrieved successfully", affiliate)
}

// Suspend disables an affiliate. Admin only.
func (ac *AffiliateController) Suspend(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid affiliate ID",
		})
	}

	var req models.SuspendAffiliateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	actor, _ := middleware.GetUserIDFromToken(c)
	affiliate, err := ac.service.Suspend(ctx, id, req.Reason, actor)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Affiliate suspended successfully", affiliate)
}

// Reactivate re-enables a suspended affiliate. Admin only.
func (ac *AffiliateController) Reactivate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid affiliate ID",
		})
	}

	actor, _ := middleware.GetUserIDFromToken(c)
	affiliate, err := ac.service.Reactivate(ctx, id, actor)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Affiliate reactivated successfully", affiliate)
}

// AdjustRate changes an affiliate's commission rate. Admin only.
func (ac *AffiliateController) AdjustRate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid affiliate ID",
		})
	}

	var req models.AdjustRateRequest
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

	actor, _ := middleware.GetUserIDFromToken(c)
	affiliate, err := ac.service.AdjustRate(ctx, id, req.CommissionRate, actor)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Commission rate updated successfully", affiliate)
}

// Reconcile recomputes the cached earnings counter from referral records
// and reports both values. Admin only.
func (ac *AffiliateController) Reconcile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid affiliate ID",
		})
	}

	cached, derived, err := ac.service.ReconcileTotals(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Reconciliation completed", bson.M{
		"cachedTotalEarnings":  cached,
		"derivedTotalEarnings": derived,
		"consistent":           cached == derived,
	})
}
