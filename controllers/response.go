package controllers

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/craftora/affiliate_backend/models"
)

// respondError maps an application error onto the JSON response envelope.
// Storage errors are logged and masked so internals never leak to clients.
func respondError(c echo.Context, err error) error {
	status := models.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error on %s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, models.Response{
			Status:  status,
			Message: "Internal server error",
		})
	}
	return c.JSON(status, models.Response{
		Status:  status,
		Message: err.Error(),
	})
}

func respondOK(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

func respondCreated(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
	})
}
