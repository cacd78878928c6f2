package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/talking/chat-server/internal/core/domain"
	"github.com/talking/chat-server/internal/core/ports"
)

// TokenHeader carries the session token on every authenticated request.
const TokenHeader = "x-token"

// ContextUID is the echo context key holding the authenticated user id.
const ContextUID = "uid"

// Auth rejects requests without a valid, live session token and injects the
// caller's uid into the context. Store failures surface as 500 through the
// error handler.
func Auth(auth ports.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := strings.TrimSpace(c.Request().Header.Get(TokenHeader))
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no token in request")
			}

			uid, err := auth.Authenticate(c.Request().Context(), token)
			switch {
			case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrSessionRevoked):
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			case err != nil:
				return err
			}

			c.Set(ContextUID, uid)
			return next(c)
		}
	}
}
