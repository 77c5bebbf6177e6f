package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"example.com/budpal/backend/internal/budget"
	"example.com/budpal/backend/internal/models"
)

func sampleReport() budget.Report {
	date := "2024-01-05"
	remaining := -50.0
	return budget.BuildReport([]models.OverviewItem{
		{ID: "f1", Category: models.CategoryFixed, Title: "Rent", Planned: 1000, Actual: 1000, Currency: models.CurrencyUSD, Date: &date},
		{ID: "d1", Category: models.CategoryDaily, Title: "Groceries", Planned: 200, Actual: 250, Currency: models.CurrencyUSD, Remaining: &remaining},
	})
}

// TestFormatAmount проверяет округление до двух знаков.
func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		0:       "0.00",
		12.5:    "12.50",
		99.999:  "100.00",
		-50:     "-50.00",
		1234.56: "1234.56",
	}
	for value, want := range cases {
		if got := formatAmount(value); got != want {
			t.Fatalf("formatAmount(%v) = %s, want %s", value, got, want)
		}
	}
}

// TestWriteOverviewCSV проверяет состав и порядок строк выгрузки.
func TestWriteOverviewCSV(t *testing.T) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writeOverviewCSV(writer, sampleReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	writer.Flush()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// заголовок, две записи, пустая строка, заголовок итогов, пять категорий, общий итог
	if len(lines) != 11 {
		t.Fatalf("expected 11 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[1] != "f1,Fixed,Rent,USD,1000.00,1000.00,2024-01-05," {
		t.Fatalf("unexpected fixed row: %s", lines[1])
	}
	if lines[2] != "d1,Daily,Groceries,USD,200.00,250.00,,-50.00" {
		t.Fatalf("unexpected daily row: %s", lines[2])
	}
	if lines[10] != "Total,,1200.00,1250.00,50.00" {
		t.Fatalf("unexpected total row: %s", lines[10])
	}
}

// TestBuildOverviewXLSX проверяет листы и итоговую строку книги.
func TestBuildOverviewXLSX(t *testing.T) {
	payload, err := buildOverviewXLSX(sampleReport())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(overviewSheet)
	if err != nil {
		t.Fatalf("overview rows: %v", err)
	}
	if len(rows) != 3 || rows[2][2] != "Groceries" {
		t.Fatalf("unexpected overview rows: %v", rows)
	}

	totals, err := f.GetRows(totalsSheet)
	if err != nil {
		t.Fatalf("totals rows: %v", err)
	}
	if len(totals) != 7 || totals[6][0] != "Total" {
		t.Fatalf("unexpected totals rows: %v", totals)
	}

	for cell, want := range map[string]string{"C7": "1200", "D7": "1250", "E7": "50", "E3": "50", "B3": "1"} {
		value, err := f.GetCellValue(totalsSheet, cell, excelize.Options{RawCellValue: true})
		if err != nil {
			t.Fatalf("%s: %v", cell, err)
		}
		if value != want {
			t.Fatalf("%s: expected %s, got %s", cell, want, value)
		}
		cellType, err := f.GetCellType(totalsSheet, cell)
		if err != nil {
			t.Fatalf("%s type: %v", cell, err)
		}
		if cellType == excelize.CellTypeSharedString || cellType == excelize.CellTypeInlineString {
			t.Fatalf("%s: expected numeric cell, got type %v", cell, cellType)
		}
	}
}

// TestRoundAmount проверяет округление сумм для числовых ячеек.
func TestRoundAmount(t *testing.T) {
	cases := map[float64]float64{
		99.999:  100,
		-50.501: -50.5,
		12.345:  12.35,
		1234.5:  1234.5,
	}
	for value, want := range cases {
		if got := roundAmount(value); got != want {
			t.Fatalf("roundAmount(%v) = %v, want %v", value, got, want)
		}
	}
}

// TestRespondBudgetError проверяет коды ответов для ошибок хранилища категорий.
func TestRespondBudgetError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &budget.ValidationError{Field: "title", Message: "is required"}, http.StatusBadRequest},
		{"not found", &budget.NotFoundError{Category: models.CategoryDebt, ID: "x"}, http.StatusNotFound},
		{"store", &budget.StoreError{Op: "list", Category: models.CategoryDebt, Err: errors.New("down")}, http.StatusBadGateway},
		{"aggregation", &budget.AggregationError{Category: models.CategoryIncome, Err: errors.New("down")}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	e := echo.New()
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := respondBudgetError(c, nil, tc.err); err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"error"`) {
			t.Fatalf("%s: expected error body, got %s", tc.name, rec.Body.String())
		}
	}
}

// TestRespondBudgetErrorCanceled проверяет, что отмененный запрос не получает ответа.
func TestRespondBudgetErrorCanceled(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := respondBudgetError(c, nil, context.Canceled); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %s", rec.Body.String())
	}
}
