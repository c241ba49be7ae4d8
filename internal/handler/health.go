package handler // declare the package name; contains HTTP handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a liveness endpoint for load balancers and monitoring systems.
// It never touches the store, so it keeps answering "OK" with 200 even when
// the database is unreachable.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}
