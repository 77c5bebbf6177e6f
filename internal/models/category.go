package models

import "strings"

type Category string

const (
	CategoryFixed      Category = "Fixed"
	CategoryDaily      Category = "Daily"
	CategoryDebt       Category = "Debt"
	CategoryIncome     Category = "Income"
	CategoryInvestment Category = "Investment"
)

// CategoryInfo описывает категорию: коллекцию, подпись, цвет и иконку.
type CategoryInfo struct {
	Category     Category `json:"category"`
	Slug         string   `json:"slug"`
	Collection   string   `json:"collection"`
	Label        string   `json:"label"`
	Color        string   `json:"color"`
	Icon         string   `json:"icon"`
	HasDate      bool     `json:"has_date"`
	HasRemaining bool     `json:"has_remaining"`
}

// Categories задает таблицу категорий в порядке сводного отчета.
var Categories = []CategoryInfo{
	{Category: CategoryFixed, Slug: "fixed", Collection: "fixedExpenses", Label: "Fixed Expenses", Color: "#2196F3", Icon: "home", HasDate: true},
	{Category: CategoryDaily, Slug: "daily", Collection: "dailyExpenses", Label: "Daily Expenses", Color: "#4CAF50", Icon: "shopping-cart", HasRemaining: true},
	{Category: CategoryDebt, Slug: "debt", Collection: "debts", Label: "Debts", Color: "#FF9800", Icon: "credit-card", HasDate: true},
	{Category: CategoryIncome, Slug: "income", Collection: "income", Label: "Income", Color: "#4CAF50", Icon: "trending-up"},
	{Category: CategoryInvestment, Slug: "investment", Collection: "investments", Label: "Investments", Color: "#9C27B0", Icon: "account-balance", HasDate: true},
}

// AllCategories возвращает категории в порядке сводного отчета.
func AllCategories() []Category {
	out := make([]Category, 0, len(Categories))
	for _, info := range Categories {
		out = append(out, info.Category)
	}
	return out
}

// Info возвращает описание категории; ok=false для неизвестной категории.
func (c Category) Info() (CategoryInfo, bool) {
	for _, info := range Categories {
		if info.Category == c {
			return info, true
		}
	}
	return CategoryInfo{}, false
}

// Valid проверяет, что категория известна.
func (c Category) Valid() bool {
	_, ok := c.Info()
	return ok
}

// ParseCategory разбирает категорию по тегу, slug или имени коллекции без учета регистра.
func ParseCategory(raw string) (Category, bool) {
	value := strings.TrimSpace(raw)
	for _, info := range Categories {
		if strings.EqualFold(value, string(info.Category)) ||
			strings.EqualFold(value, info.Slug) ||
			strings.EqualFold(value, info.Collection) {
			return info.Category, true
		}
	}
	return "", false
}
