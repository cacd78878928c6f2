package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/talking/chat-server/internal/core/ports"
)

// UserHandler serves the user list and conversation history.
type UserHandler struct {
	users ports.UserDirectory
}

func NewUserHandler(users ports.UserDirectory) *UserHandler {
	return &UserHandler{users: users}
}

// List godoc
// @Summary      List users
// @Description  Users other than the caller, online users first.
// @Tags         users
// @Produce      json
// @Security     TokenAuth
// @Param        from   query     int  false  "Offset"     default(0)
// @Param        limit  query     int  false  "Page size"  default(10)
// @Success      200    {object}  usersResponse
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Router       /api/users [get]
func (h *UserHandler) List(c echo.Context) error {
	uid, err := ctxUID(c)
	if err != nil {
		return err
	}

	from, err := intQuery(c, "from", 0)
	if err != nil {
		return err
	}
	limit, err := intQuery(c, "limit", 10)
	if err != nil {
		return err
	}

	users, err := h.users.ListUsers(c.Request().Context(), uid, from, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, usersResponse{Users: users, From: from, Limit: limit})
}

// Chats godoc
// @Summary      Conversation history
// @Description  The most recent messages between the caller and another user, newest first.
// @Tags         users
// @Produce      json
// @Security     TokenAuth
// @Param        to   path      string  true  "Peer user id"
// @Success      200  {object}  chatsResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/users/chats/{to} [get]
func (h *UserHandler) Chats(c echo.Context) error {
	uid, err := ctxUID(c)
	if err != nil {
		return err
	}

	msgs, err := h.users.History(c.Request().Context(), uid, c.Param("to"), 0)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chatsResponse{Messages: msgs})
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a number")
	}
	return n, nil
}
