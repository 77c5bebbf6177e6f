package budget

import (
	"errors"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"example.com/budpal/backend/internal/models"
)

// ItemInput содержит поля новой записи без id, временных меток и remaining.
type ItemInput struct {
	Title    string          `json:"title" validate:"required"`
	Currency models.Currency `json:"currency" validate:"required,currency"`
	Planned  *float64        `json:"planned" validate:"required"`
	Actual   *float64        `json:"actual" validate:"required"`
	Date     *string         `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ItemPatch описывает частичное обновление; nil-поля не меняются.
type ItemPatch struct {
	Title    *string          `json:"title"`
	Currency *models.Currency `json:"currency" validate:"omitempty,currency"`
	Planned  *float64         `json:"planned"`
	Actual   *float64         `json:"actual"`
	Date     *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return models.Currency(fl.Field().String()).Valid()
	})
	return v
}

func validateInput(info models.CategoryInfo, input *ItemInput) error {
	input.Title = strings.TrimSpace(input.Title)
	if err := checkStruct(input); err != nil {
		return err
	}
	if err := checkAmount("planned", input.Planned); err != nil {
		return err
	}
	if err := checkAmount("actual", input.Actual); err != nil {
		return err
	}

	switch {
	case info.HasDate && input.Date == nil:
		return &ValidationError{Field: "date", Message: "is required"}
	case !info.HasDate && input.Date != nil:
		return &ValidationError{Field: "date", Message: "is not supported for " + info.Label}
	}
	return nil
}

func validatePatch(info models.CategoryInfo, patch *ItemPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return &ValidationError{Field: "title", Message: "must not be empty"}
		}
		patch.Title = &title
	}
	if err := checkStruct(patch); err != nil {
		return err
	}
	if err := checkAmount("planned", patch.Planned); err != nil {
		return err
	}
	if err := checkAmount("actual", patch.Actual); err != nil {
		return err
	}
	if !info.HasDate && patch.Date != nil {
		return &ValidationError{Field: "date", Message: "is not supported for " + info.Label}
	}
	return nil
}

func checkStruct(value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: strings.ToLower(fe.Field()), Message: describeTag(fe)}
	}
	return &ValidationError{Message: err.Error()}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "currency":
		return "unsupported currency"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "is invalid"
	}
}

func checkAmount(field string, value *float64) error {
	if value == nil {
		return nil
	}
	if math.IsNaN(*value) || math.IsInf(*value, 0) {
		return &ValidationError{Field: field, Message: "must be a number"}
	}
	return nil
}
