package budget

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"

	"example.com/budpal/backend/internal/docstore"
	"example.com/budpal/backend/internal/memstore"
	"example.com/budpal/backend/internal/models"
)

// failingCollection ломает выборку одной коллекции.
type failingCollection struct {
	docstore.Documents
	collection string
	err        error
}

func (d *failingCollection) FetchAll(ctx context.Context, scope docstore.Scope) ([]docstore.Document, error) {
	if scope.Collection == d.collection {
		return nil, d.err
	}
	return d.Documents.FetchAll(ctx, scope)
}

func seed(t *testing.T, store *Store, userID uuid.UUID, inputs ...ItemInput) {
	t.Helper()
	for _, input := range inputs {
		if _, err := store.Create(context.Background(), userID, input); err != nil {
			t.Fatalf("seed %s: %v", store.Category(), err)
		}
	}
}

// TestScenarioGrandTotals проверяет итог по фиксированному расходу и доходу.
func TestScenarioGrandTotals(t *testing.T) {
	stores := newStores(t)
	aggregator := NewAggregator(stores)
	userID := uuid.New()

	seed(t, mustStore(t, stores, models.CategoryFixed), userID,
		ItemInput{Title: "Rent", Currency: models.CurrencyUSD, Planned: amount(1000), Actual: amount(1000), Date: date("2024-01-01")})
	seed(t, mustStore(t, stores, models.CategoryIncome), userID,
		ItemInput{Title: "Salary", Currency: models.CurrencyUSD, Planned: amount(3000), Actual: amount(3200)})

	items, err := aggregator.Items(context.Background(), userID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}

	grand := GrandTotals(items)
	want := models.GrandTotals{TotalPlanned: 4000, TotalActual: 4200, Difference: 200}
	if grand != want {
		t.Fatalf("expected %+v, got %+v", want, grand)
	}
}

// TestScenarioCategoryTotals проверяет пустую категорию и сумму по долгам.
func TestScenarioCategoryTotals(t *testing.T) {
	stores := newStores(t)
	aggregator := NewAggregator(stores)
	userID := uuid.New()

	seed(t, mustStore(t, stores, models.CategoryDebt), userID,
		ItemInput{Title: "Loan", Currency: models.CurrencyUSD, Planned: amount(500), Actual: amount(100), Date: date("2024-03-01")},
		ItemInput{Title: "Card", Currency: models.CurrencyUSD, Planned: amount(300), Actual: amount(300), Date: date("2024-03-05")})

	report, err := aggregator.Report(context.Background(), userID)
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	byCategory := map[models.Category]models.CategoryTotal{}
	for _, total := range report.Totals {
		byCategory[total.Category] = total
	}

	if got := byCategory[models.CategoryInvestment]; got != (models.CategoryTotal{Category: models.CategoryInvestment}) {
		t.Fatalf("expected zero investment totals, got %+v", got)
	}

	wantDebt := models.CategoryTotal{Category: models.CategoryDebt, PlannedSum: 800, ActualSum: 400, Difference: -400, Count: 2}
	if got := byCategory[models.CategoryDebt]; got != wantDebt {
		t.Fatalf("expected %+v, got %+v", wantDebt, got)
	}
}

// TestCategoryTotalsEmpty проверяет пять нулевых записей для пустой сводки.
func TestCategoryTotalsEmpty(t *testing.T) {
	totals := CategoryTotals(nil)
	if len(totals) != 5 {
		t.Fatalf("expected 5 totals, got %d", len(totals))
	}
	for i, total := range totals {
		if total.Category != models.Categories[i].Category {
			t.Fatalf("expected %s at %d, got %s", models.Categories[i].Category, i, total.Category)
		}
		if total.PlannedSum != 0 || total.ActualSum != 0 || total.Difference != 0 || total.Count != 0 {
			t.Fatalf("expected zero totals, got %+v", total)
		}
	}

	if grand := GrandTotals(nil); grand != (models.GrandTotals{}) {
		t.Fatalf("expected zero grand totals, got %+v", grand)
	}
}

// TestGrandDifferenceMatchesCategories проверяет, что общая разница равна сумме разниц категорий.
func TestGrandDifferenceMatchesCategories(t *testing.T) {
	items := []models.OverviewItem{
		{Category: models.CategoryFixed, Planned: 1000, Actual: 950},
		{Category: models.CategoryDaily, Planned: 200, Actual: 250},
		{Category: models.CategoryDebt, Planned: 300, Actual: 300},
		{Category: models.CategoryIncome, Planned: 3000, Actual: 3200},
		{Category: models.CategoryInvestment, Planned: 400, Actual: 0},
	}

	var sum float64
	for _, total := range CategoryTotals(items) {
		sum += total.Difference
	}

	grand := GrandTotals(items)
	if grand.Difference != sum {
		t.Fatalf("expected grand difference %v, got %v", sum, grand.Difference)
	}
}

// TestItemsOrderAndIdempotence проверяет порядок категорий и повторяемость выборки.
func TestItemsOrderAndIdempotence(t *testing.T) {
	stores := newStores(t)
	aggregator := NewAggregator(stores)
	userID := uuid.New()

	seed(t, mustStore(t, stores, models.CategoryInvestment), userID,
		ItemInput{Title: "Fund", Currency: models.CurrencyAED, Planned: amount(50), Actual: amount(40), Date: date("2024-05-01")})
	seed(t, mustStore(t, stores, models.CategoryDaily), userID,
		ItemInput{Title: "Coffee", Currency: models.CurrencySAR, Planned: amount(10), Actual: amount(12)})
	seed(t, mustStore(t, stores, models.CategoryFixed), userID,
		ItemInput{Title: "Rent", Currency: models.CurrencyUSD, Planned: amount(1000), Actual: amount(1000), Date: date("2024-01-01")})

	first, err := aggregator.Items(context.Background(), userID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	second, err := aggregator.Items(context.Background(), userID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results without mutations")
	}

	wantOrder := []models.Category{models.CategoryFixed, models.CategoryDaily, models.CategoryInvestment}
	if len(first) != len(wantOrder) {
		t.Fatalf("expected %d items, got %d", len(wantOrder), len(first))
	}
	for i, item := range first {
		if item.Category != wantOrder[i] {
			t.Fatalf("expected %s at %d, got %s", wantOrder[i], i, item.Category)
		}
	}

	if first[1].Remaining == nil || *first[1].Remaining != -2 {
		t.Fatalf("expected daily remaining -2, got %v", first[1].Remaining)
	}
	if first[0].Remaining != nil || first[0].Date == nil || *first[0].Date != "2024-01-01" {
		t.Fatalf("unexpected fixed projection: %+v", first[0])
	}
}

// TestItemsFailFast проверяет, что ошибка одной категории не дает частичной сводки.
func TestItemsFailFast(t *testing.T) {
	cause := errors.New("permission denied")
	docs := &failingCollection{Documents: memstore.NewDocuments(), collection: "debts", err: cause}
	stores := NewStores(docs)
	userID := uuid.New()

	seed(t, mustStore(t, stores, models.CategoryFixed), userID,
		ItemInput{Title: "Rent", Currency: models.CurrencyUSD, Planned: amount(1000), Actual: amount(1000), Date: date("2024-01-01")})

	items, err := NewAggregator(stores).Items(context.Background(), userID)
	if items != nil {
		t.Fatalf("expected no partial result, got %d items", len(items))
	}

	var aggErr *AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected aggregation error, got %v", err)
	}
	if aggErr.Category != models.CategoryDebt || !errors.Is(err, cause) {
		t.Fatalf("unexpected aggregation error: %v", err)
	}
}

// TestCurrencyTotals проверяет разбивку по валютам.
func TestCurrencyTotals(t *testing.T) {
	items := []models.OverviewItem{
		{Category: models.CategoryFixed, Currency: models.CurrencyJOD, Planned: 100, Actual: 90},
		{Category: models.CategoryIncome, Currency: models.CurrencyUSD, Planned: 3000, Actual: 3200},
		{Category: models.CategoryDaily, Currency: models.CurrencyJOD, Planned: 20, Actual: 30},
	}

	totals := CurrencyTotals(items)
	want := []models.CurrencyTotal{
		{Currency: models.CurrencyUSD, PlannedSum: 3000, ActualSum: 3200, Difference: 200, Count: 1},
		{Currency: models.CurrencyJOD, PlannedSum: 120, ActualSum: 120, Difference: 0, Count: 2},
	}
	if !reflect.DeepEqual(totals, want) {
		t.Fatalf("expected %+v, got %+v", want, totals)
	}
}

// TestItemsConcurrentCalls проверяет, что параллельные вызовы Items возвращают одинаковый результат.
func TestItemsConcurrentCalls(t *testing.T) {
	stores := newStores(t)
	aggregator := NewAggregator(stores)
	userID := uuid.New()

	seed(t, mustStore(t, stores, models.CategoryDaily), userID,
		ItemInput{Title: "Coffee", Currency: models.CurrencyEUR, Planned: amount(30), Actual: amount(12)},
		ItemInput{Title: "Lunch", Currency: models.CurrencyEUR, Planned: amount(100), Actual: amount(140)})
	seed(t, mustStore(t, stores, models.CategoryDebt), userID,
		ItemInput{Title: "Card", Currency: models.CurrencyUSD, Planned: amount(500), Actual: amount(250), Date: date("2024-02-01")})

	baseline, err := aggregator.Items(context.Background(), userID)
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if len(baseline) != 3 {
		t.Fatalf("expected 3 items, got %d", len(baseline))
	}

	const workers = 32
	results := make([][]models.OverviewItem, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = aggregator.Items(context.Background(), userID)
		}()
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if !reflect.DeepEqual(results[i], baseline) {
			t.Fatalf("call %d differs from baseline: %+v", i, results[i])
		}
	}
}
