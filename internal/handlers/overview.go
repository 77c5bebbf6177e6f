package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"example.com/budpal/backend/internal/appstate"
	"example.com/budpal/backend/internal/auth"
	"example.com/budpal/backend/internal/budget"
	"example.com/budpal/backend/internal/models"
)

type OverviewHandler struct {
	States *appstate.Registry
}

// NewOverviewHandler создает обработчик сводного отчета.
func NewOverviewHandler(states *appstate.Registry) *OverviewHandler {
	return &OverviewHandler{States: states}
}

type TotalsResponse struct {
	Totals []models.CategoryTotal `json:"totals"`
}

// Overview возвращает все записи пользователя с итогами.
// С group=currency добавляются итоги по валютам.
func (h *OverviewHandler) Overview(c echo.Context) error {
	report, ok, err := loadReport(c, h.States)
	if !ok {
		return err
	}

	if !strings.EqualFold(strings.TrimSpace(c.QueryParam("group")), "currency") {
		report.ByCurrency = nil
	}
	return c.JSON(http.StatusOK, report)
}

// Totals возвращает итоги по пяти категориям.
func (h *OverviewHandler) Totals(c echo.Context) error {
	report, ok, err := loadReport(c, h.States)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, TotalsResponse{Totals: report.Totals})
}

// Grand возвращает общие итоги.
func (h *OverviewHandler) Grand(c echo.Context) error {
	report, ok, err := loadReport(c, h.States)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, report.Grand)
}

// loadReport перечитывает сводку через состояние пользователя; ok=false, если ответ уже отправлен.
func loadReport(c echo.Context, states *appstate.Registry) (budget.Report, bool, error) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return budget.Report{}, false, unauthorized(c, "invalid credentials")
	}

	session := states.Session(userID)
	if err := session.LoadOverview(c.Request().Context()); err != nil {
		return budget.Report{}, false, respondBudgetError(c, session, err)
	}

	items := session.Snapshot().Overview
	if items == nil {
		items = []models.OverviewItem{}
	}
	return budget.BuildReport(items), true, nil
}
