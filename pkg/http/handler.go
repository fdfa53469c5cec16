package http

import "github.com/labstack/echo/v4"

// Handler is implemented by API surfaces that mount their routes on the
// shared Echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
