// Package docstore описывает хранилище документов категорий и учетных записей,
// общее для PostgreSQL, MongoDB и in-memory реализаций.
package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"example.com/budpal/backend/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Scope адресует коллекцию одного пользователя.
type Scope struct {
	UserID     uuid.UUID
	Collection string
}

// Document хранит запись коллекции категории.
type Document struct {
	ID        string
	Title     string
	Currency  string
	Planned   float64
	Actual    float64
	Date      *string
	Remaining *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Patch содержит только изменяемые поля; nil означает "не менять".
type Patch struct {
	Title     *string
	Currency  *string
	Planned   *float64
	Actual    *float64
	Date      *string
	Remaining *float64
	UpdatedAt time.Time
}

// Apply накладывает изменения на документ.
func (p Patch) Apply(doc Document) Document {
	if p.Title != nil {
		doc.Title = *p.Title
	}
	if p.Currency != nil {
		doc.Currency = *p.Currency
	}
	if p.Planned != nil {
		doc.Planned = *p.Planned
	}
	if p.Actual != nil {
		doc.Actual = *p.Actual
	}
	if p.Date != nil {
		value := *p.Date
		doc.Date = &value
	}
	if p.Remaining != nil {
		value := *p.Remaining
		doc.Remaining = &value
	}
	if !p.UpdatedAt.IsZero() {
		doc.UpdatedAt = p.UpdatedAt
	}
	return doc
}

type Documents interface {
	Insert(ctx context.Context, scope Scope, doc Document) (string, error)
	FetchAll(ctx context.Context, scope Scope) ([]Document, error)
	FetchOne(ctx context.Context, scope Scope, id string) (Document, error)
	Patch(ctx context.Context, scope Scope, id string, patch Patch) error
	Remove(ctx context.Context, scope Scope, id string) error
}

type Users interface {
	Create(ctx context.Context, email, passwordHash string, name *string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

type RefreshTokens interface {
	Create(ctx context.Context, token models.RefreshToken) error
	GetByID(ctx context.Context, id uuid.UUID) (models.RefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID, replacedBy *uuid.UUID) error
	Rotate(ctx context.Context, oldID uuid.UUID, newToken models.RefreshToken) error
}

// Backend объединяет все хранилища одной реализации.
type Backend struct {
	Name          string
	Documents     Documents
	Users         Users
	RefreshTokens RefreshTokens
	Ping          func(ctx context.Context) error
	Close         func(ctx context.Context) error
}
