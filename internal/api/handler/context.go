package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talking/chat-server/internal/api/middleware"
)

// ctxUID returns the user id injected by the Auth middleware. An empty value
// means the route was mounted without it.
func ctxUID(c echo.Context) (string, error) {
	uid, _ := c.Get(middleware.ContextUID).(string)
	if uid == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return uid, nil
}
