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

type ClickController struct {
	service *services.ClickService
}

func NewClickController(service *services.ClickService) *ClickController {
	return &ClickController{service: service}
}

// RecordClick logs a visit through an affiliate link. This endpoint is
// public; the visitor is not authenticated.
func (cc *ClickController) RecordClick(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.RecordClickRequest
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

	click, err := cc.service.RecordClick(ctx, req, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Click recorded successfully", click)
}

// MarkConverted flags a click as converted. Converting an already
// converted click leaves it untouched.
func (cc *ClickController) MarkConverted(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid click ID",
		})
	}

	click, err := cc.service.MarkConverted(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Click marked as converted", click)
}
