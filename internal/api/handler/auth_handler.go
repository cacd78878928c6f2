package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talking/chat-server/internal/api/metrics"
	"github.com/talking/chat-server/internal/core/domain"
	"github.com/talking/chat-server/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new, unverified user account.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/users [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{User: user})
}

// Login authenticates a user and returns a session token. Any earlier
// session of the user stops being live.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
		return err
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", outcome(err)).Inc()
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "ok").Inc()
	return c.JSON(http.StatusOK, authResponse{User: user, Token: token})
}

// RenewToken issues a fresh token for the caller and supersedes the one
// presented.
//
// @Summary      Renew the session token
// @Tags         auth
// @Produce      json
// @Security     TokenAuth
// @Success      200   {object}  authResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/renew-token [get]
func (h *AuthHandler) RenewToken(c echo.Context) error {
	uid, err := ctxUID(c)
	if err != nil {
		return err
	}

	token, user, err := h.authService.RenewToken(c.Request().Context(), uid)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("renew", outcome(err)).Inc()
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("renew", "ok").Inc()
	return c.JSON(http.StatusOK, authResponse{User: user, Token: token})
}

// Logout revokes the caller's session. The token keeps a valid signature but
// is refused by every authenticated route afterwards.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     TokenAuth
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, err := ctxUID(c)
	if err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), uid); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("logout", "error").Inc()
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("logout", "ok").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

func outcome(err error) string {
	if errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrUserNotFound) {
		return "rejected"
	}
	return "error"
}
