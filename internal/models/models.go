package models

import (
	"time"

	"github.com/google/uuid"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyJOD Currency = "JOD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencySAR Currency = "SAR"
	CurrencyAED Currency = "AED"
)

// Currencies перечисляет поддерживаемые валюты в порядке отображения.
var Currencies = []Currency{CurrencyUSD, CurrencyJOD, CurrencyEUR, CurrencyGBP, CurrencySAR, CurrencyAED}

// Valid проверяет, что валюта входит в поддерживаемый набор.
func (c Currency) Valid() bool {
	for _, known := range Currencies {
		if c == known {
			return true
		}
	}
	return false
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         *string   `json:"name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RefreshToken struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *uuid.UUID `json:"replaced_by,omitempty"`
}

// LineItem хранит запись категории с плановой и фактической суммой.
type LineItem struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Title     string    `json:"title"`
	Currency  Currency  `json:"currency"`
	Planned   float64   `json:"planned"`
	Actual    float64   `json:"actual"`
	Date      *string   `json:"date,omitempty"`
	Remaining *float64  `json:"remaining,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OverviewItem проецирует LineItem в сводный отчет.
type OverviewItem struct {
	ID        string   `json:"id"`
	Category  Category `json:"category"`
	Title     string   `json:"title"`
	Planned   float64  `json:"planned"`
	Actual    float64  `json:"actual"`
	Currency  Currency `json:"currency"`
	Date      *string  `json:"date,omitempty"`
	Remaining *float64 `json:"remaining,omitempty"`
}

type CategoryTotal struct {
	Category   Category `json:"category"`
	PlannedSum float64  `json:"planned_sum"`
	ActualSum  float64  `json:"actual_sum"`
	Difference float64  `json:"difference"`
	Count      int      `json:"count"`
}

type GrandTotals struct {
	TotalPlanned float64 `json:"total_planned"`
	TotalActual  float64 `json:"total_actual"`
	Difference   float64 `json:"difference"`
}

type CurrencyTotal struct {
	Currency   Currency `json:"currency"`
	PlannedSum float64  `json:"planned_sum"`
	ActualSum  float64  `json:"actual_sum"`
	Difference float64  `json:"difference"`
	Count      int      `json:"count"`
}
