package budget

import (
	"errors"
	"fmt"

	"example.com/budpal/backend/internal/models"
)

var ErrNotFound = errors.New("item not found")

// ValidationError возникает до обращения к хранилищу.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type NotFoundError struct {
	Category models.Category
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s item %q not found", e.Category, e.ID)
}

// Is позволяет сравнивать с ErrNotFound через errors.Is.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StoreError оборачивает сбой хранилища.
type StoreError struct {
	Op       string
	Category models.Category
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Category, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// AggregationError описывает сбой выборки одной из категорий при построении сводки.
type AggregationError struct {
	Category models.Category
	Err      error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregate overview: %s: %v", e.Category, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}
