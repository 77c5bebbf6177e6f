package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/budpal/backend/internal/appstate"
	"example.com/budpal/backend/internal/budget"
	"example.com/budpal/backend/internal/models"
)

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": message})
}

func conflict(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, map[string]string{"error": message})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": message})
}

func badGateway(c echo.Context, message string) error {
	return c.JSON(http.StatusBadGateway, map[string]string{"error": message})
}

func serverError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

// respondBudgetError переводит ошибки хранилища категорий в HTTP-ответ.
// Для сбоев хранилища используется сообщение из состояния сессии.
func respondBudgetError(c echo.Context, session *appstate.Session, err error) error {
	var vErr *budget.ValidationError
	var aggErr *budget.AggregationError
	var storeErr *budget.StoreError

	switch {
	case errors.As(err, &vErr):
		return badRequest(c, vErr.Error())
	case errors.Is(err, budget.ErrNotFound):
		return notFound(c, err.Error())
	case errors.As(err, &aggErr), errors.As(err, &storeErr):
		slog.ErrorContext(c.Request().Context(), "storage call failed", slog.String("error", err.Error()))
		message := "storage backend unavailable"
		if session != nil {
			if slot := session.Snapshot().Error; slot != "" {
				message = slot
			}
		}
		return badGateway(c, message)
	case errors.Is(err, context.Canceled):
		// клиент ушел, отвечать некому
		return nil
	default:
		slog.ErrorContext(c.Request().Context(), "request failed", slog.String("error", err.Error()))
		return serverError(c)
	}
}

func parseCategory(c echo.Context) (models.Category, bool) {
	return models.ParseCategory(c.Param("category"))
}
