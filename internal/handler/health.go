package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a liveness endpoint for load balancers and monitoring. It
// requires no auth and touches no dependencies.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
