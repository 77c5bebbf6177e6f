package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/budpal/backend/internal/appstate"
	"example.com/budpal/backend/internal/auth"
)

type StateHandler struct {
	States *appstate.Registry
}

// NewStateHandler создает обработчик состояния клиента.
func NewStateHandler(states *appstate.Registry) *StateHandler {
	return &StateHandler{States: states}
}

// Get возвращает последнее загруженное состояние без обращения к хранилищу.
func (h *StateHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c, "invalid credentials")
	}

	return c.JSON(http.StatusOK, h.States.Session(userID).Snapshot())
}

// Reload параллельно перечитывает все категории и сводку.
func (h *StateHandler) Reload(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c, "invalid credentials")
	}

	session := h.States.Session(userID)
	if err := session.LoadAll(c.Request().Context()); err != nil {
		return respondBudgetError(c, session, err)
	}

	return c.JSON(http.StatusOK, session.Snapshot())
}
