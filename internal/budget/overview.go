package budget

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"example.com/budpal/backend/internal/models"
)

// Aggregator строит сводку по всем категориям пользователя.
type Aggregator struct {
	stores Stores
}

// NewAggregator создает агрегатор поверх хранилищ категорий.
func NewAggregator(stores Stores) *Aggregator {
	return &Aggregator{stores: stores}
}

// Report содержит результат одной выборки со всеми итогами.
type Report struct {
	Items      []models.OverviewItem  `json:"items"`
	Totals     []models.CategoryTotal `json:"totals"`
	Grand      models.GrandTotals     `json:"grand"`
	ByCurrency []models.CurrencyTotal `json:"by_currency,omitempty"`
}

// Items параллельно читает все категории и склеивает их в порядке категорий.
// Ошибка любой ветки отменяет остальные, частичный результат не возвращается.
func (a *Aggregator) Items(ctx context.Context, userID uuid.UUID) ([]models.OverviewItem, error) {
	results := make([][]models.LineItem, len(a.stores))

	g, gctx := errgroup.WithContext(ctx)
	for i, store := range a.stores {
		g.Go(func() error {
			items, err := store.List(gctx, userID)
			if err != nil {
				return &AggregationError{Category: store.Category(), Err: err}
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, items := range results {
		total += len(items)
	}

	out := make([]models.OverviewItem, 0, total)
	for _, items := range results {
		for _, item := range items {
			out = append(out, ToOverviewItem(item))
		}
	}
	return out, nil
}

// Report возвращает элементы сводки вместе с итогами.
func (a *Aggregator) Report(ctx context.Context, userID uuid.UUID) (Report, error) {
	items, err := a.Items(ctx, userID)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(items), nil
}

// BuildReport считает итоги по уже выбранным элементам.
func BuildReport(items []models.OverviewItem) Report {
	return Report{
		Items:      items,
		Totals:     CategoryTotals(items),
		Grand:      GrandTotals(items),
		ByCurrency: CurrencyTotals(items),
	}
}

// ToOverviewItem проецирует запись категории в элемент сводки.
func ToOverviewItem(item models.LineItem) models.OverviewItem {
	out := models.OverviewItem{
		ID:       item.ID,
		Category: item.Category,
		Title:    item.Title,
		Planned:  item.Planned,
		Actual:   item.Actual,
		Currency: item.Currency,
	}
	if item.Date != nil {
		date := *item.Date
		out.Date = &date
	}
	if item.Category == models.CategoryDaily && item.Remaining != nil {
		remaining := *item.Remaining
		out.Remaining = &remaining
	}
	return out
}

// CategoryTotals всегда возвращает пять записей в порядке категорий.
func CategoryTotals(items []models.OverviewItem) []models.CategoryTotal {
	totals := make([]models.CategoryTotal, 0, len(models.Categories))
	for _, category := range models.AllCategories() {
		total := models.CategoryTotal{Category: category}
		for _, item := range items {
			if item.Category != category {
				continue
			}
			total.PlannedSum += item.Planned
			total.ActualSum += item.Actual
			total.Count++
		}
		total.Difference = total.ActualSum - total.PlannedSum
		totals = append(totals, total)
	}
	return totals
}

// GrandTotals суммирует planned и actual без учета валюты.
func GrandTotals(items []models.OverviewItem) models.GrandTotals {
	var grand models.GrandTotals
	for _, item := range items {
		grand.TotalPlanned += item.Planned
		grand.TotalActual += item.Actual
	}
	grand.Difference = grand.TotalActual - grand.TotalPlanned
	return grand
}

// CurrencyTotals группирует суммы по валюте; валюты без записей пропускаются.
func CurrencyTotals(items []models.OverviewItem) []models.CurrencyTotal {
	var totals []models.CurrencyTotal
	for _, currency := range models.Currencies {
		total := models.CurrencyTotal{Currency: currency}
		for _, item := range items {
			if item.Currency != currency {
				continue
			}
			total.PlannedSum += item.Planned
			total.ActualSum += item.Actual
			total.Count++
		}
		if total.Count == 0 {
			continue
		}
		total.Difference = total.ActualSum - total.PlannedSum
		totals = append(totals, total)
	}
	return totals
}
