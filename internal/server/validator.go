package server

import (
	"github.com/go-playground/validator/v10"

	"example.com/budpal/backend/internal/models"
)

type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator создает валидатор запросов с правилом currency.
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return models.Currency(fl.Field().String()).Valid()
	})
	return &CustomValidator{validator: v}
}

// Validate запускает проверку структуры по тегам.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
