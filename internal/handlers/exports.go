package handlers

import (
	"bytes"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"example.com/budpal/backend/internal/appstate"
	"example.com/budpal/backend/internal/budget"
	"example.com/budpal/backend/internal/models"
)

const (
	overviewSheet = "Overview"
	totalsSheet   = "Totals"
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var overviewHeader = []string{"id", "category", "title", "currency", "planned", "actual", "date", "remaining"}

var totalsHeader = []string{"category", "count", "planned_sum", "actual_sum", "difference"}

type ExportHandler struct {
	States *appstate.Registry
}

// NewExportHandler создает обработчик выгрузок сводки.
func NewExportHandler(states *appstate.Registry) *ExportHandler {
	return &ExportHandler{States: states}
}

// OverviewCSV выгружает сводку в CSV: записи, затем итоги по категориям и общий итог.
func (h *ExportHandler) OverviewCSV(c echo.Context) error {
	report, ok, err := loadReport(c, h.States)
	if !ok {
		return err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writeOverviewCSV(writer, report); err != nil {
		return serverError(c)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return serverError(c)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\"overview.csv\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// OverviewXLSX выгружает сводку в книгу Excel с листами записей и итогов.
func (h *ExportHandler) OverviewXLSX(c echo.Context) error {
	report, ok, err := loadReport(c, h.States)
	if !ok {
		return err
	}

	payload, err := buildOverviewXLSX(report)
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "xlsx export failed", slog.String("error", err.Error()))
		return serverError(c)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\"overview.xlsx\"")
	return c.Blob(http.StatusOK, xlsxMIME, payload)
}

func writeOverviewCSV(writer *csv.Writer, report budget.Report) error {
	if err := writer.Write(overviewHeader); err != nil {
		return err
	}
	for _, item := range report.Items {
		if err := writer.Write(overviewRecord(item)); err != nil {
			return err
		}
	}

	if err := writer.Write(nil); err != nil {
		return err
	}
	if err := writer.Write(totalsHeader); err != nil {
		return err
	}
	for _, total := range report.Totals {
		if err := writer.Write(totalsRecord(total)); err != nil {
			return err
		}
	}

	return writer.Write(grandRecord(report.Grand))
}

func buildOverviewXLSX(report budget.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName(f.GetSheetName(0), overviewSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(overviewSheet, "A1", &overviewHeader); err != nil {
		return nil, err
	}
	for i, item := range report.Items {
		if err := setRow(f, overviewSheet, i+2, overviewCells(item)); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(totalsSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(totalsSheet, "A1", &totalsHeader); err != nil {
		return nil, err
	}
	for i, total := range report.Totals {
		if err := setRow(f, totalsSheet, i+2, totalsCells(total)); err != nil {
			return nil, err
		}
	}
	if err := setRow(f, totalsSheet, len(report.Totals)+2, grandCells(report.Grand)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// Ячейки сумм в книге числовые, чтобы их можно было суммировать в Excel.
func overviewCells(item models.OverviewItem) []any {
	var date, remaining any
	if item.Date != nil {
		date = *item.Date
	}
	if item.Remaining != nil {
		remaining = roundAmount(*item.Remaining)
	}

	return []any{
		item.ID,
		string(item.Category),
		item.Title,
		string(item.Currency),
		roundAmount(item.Planned),
		roundAmount(item.Actual),
		date,
		remaining,
	}
}

func totalsCells(total models.CategoryTotal) []any {
	return []any{
		string(total.Category),
		total.Count,
		roundAmount(total.PlannedSum),
		roundAmount(total.ActualSum),
		roundAmount(total.Difference),
	}
}

func grandCells(grand models.GrandTotals) []any {
	return []any{
		"Total",
		nil,
		roundAmount(grand.TotalPlanned),
		roundAmount(grand.TotalActual),
		roundAmount(grand.Difference),
	}
}

func overviewRecord(item models.OverviewItem) []string {
	date := ""
	if item.Date != nil {
		date = *item.Date
	}
	remaining := ""
	if item.Remaining != nil {
		remaining = formatAmount(*item.Remaining)
	}

	return []string{
		item.ID,
		string(item.Category),
		item.Title,
		string(item.Currency),
		formatAmount(item.Planned),
		formatAmount(item.Actual),
		date,
		remaining,
	}
}

func totalsRecord(total models.CategoryTotal) []string {
	return []string{
		string(total.Category),
		strconv.Itoa(total.Count),
		formatAmount(total.PlannedSum),
		formatAmount(total.ActualSum),
		formatAmount(total.Difference),
	}
}

func grandRecord(grand models.GrandTotals) []string {
	return []string{
		"Total",
		"",
		formatAmount(grand.TotalPlanned),
		formatAmount(grand.TotalActual),
		formatAmount(grand.Difference),
	}
}

func roundAmount(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

// formatAmount печатает сумму с двумя знаками после запятой.
func formatAmount(value float64) string {
	return decimal.NewFromFloat(value).StringFixed(2)
}
