package budget

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"example.com/budpal/backend/internal/docstore"
	"example.com/budpal/backend/internal/models"
)

// Store выполняет CRUD над коллекцией одной категории.
type Store struct {
	info models.CategoryInfo
	docs docstore.Documents
	now  func() time.Time
}

type Option func(*Store)

// WithClock подменяет источник времени для временных меток.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore создает хранилище для категории.
func NewStore(docs docstore.Documents, category models.Category, opts ...Option) (*Store, error) {
	info, ok := category.Info()
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	s := &Store{
		info: info,
		docs: docs,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Category() models.Category {
	return s.info.Category
}

func (s *Store) Info() models.CategoryInfo {
	return s.info
}

func (s *Store) scope(userID uuid.UUID) docstore.Scope {
	return docstore.Scope{UserID: userID, Collection: s.info.Collection}
}

// Create проверяет ввод, сохраняет запись и возвращает ее id.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, input ItemInput) (string, error) {
	if err := validateInput(s.info, &input); err != nil {
		return "", err
	}

	now := s.now()
	doc := docstore.Document{
		Title:     input.Title,
		Currency:  string(input.Currency),
		Planned:   *input.Planned,
		Actual:    *input.Actual,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.info.HasDate {
		date := *input.Date
		doc.Date = &date
	}
	if s.info.HasRemaining {
		remaining := doc.Planned - doc.Actual
		doc.Remaining = &remaining
	}

	id, err := s.docs.Insert(ctx, s.scope(userID), doc)
	if err != nil {
		return "", &StoreError{Op: "create", Category: s.info.Category, Err: err}
	}
	return id, nil
}

// List возвращает все записи категории по возрастанию CreatedAt, при равенстве по ID.
func (s *Store) List(ctx context.Context, userID uuid.UUID) ([]models.LineItem, error) {
	docs, err := s.docs.FetchAll(ctx, s.scope(userID))
	if err != nil {
		return nil, &StoreError{Op: "list", Category: s.info.Category, Err: err}
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})

	items := make([]models.LineItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, s.toLineItem(doc))
	}
	return items, nil
}

// Get возвращает одну запись.
func (s *Store) Get(ctx context.Context, userID uuid.UUID, id string) (models.LineItem, error) {
	doc, err := s.docs.FetchOne(ctx, s.scope(userID), id)
	if err != nil {
		return models.LineItem{}, s.wrap("get", id, err)
	}
	return s.toLineItem(doc), nil
}

// Update применяет частичное изменение. Для категории с остатком изменение
// planned или actual записывает оба операнда и пересчитанный remaining одной записью.
func (s *Store) Update(ctx context.Context, userID uuid.UUID, id string, patch ItemPatch) error {
	if err := validatePatch(s.info, &patch); err != nil {
		return err
	}

	change := docstore.Patch{
		Title:     patch.Title,
		Planned:   patch.Planned,
		Actual:    patch.Actual,
		Date:      patch.Date,
		UpdatedAt: s.now(),
	}
	if patch.Currency != nil {
		currency := string(*patch.Currency)
		change.Currency = &currency
	}

	if s.info.HasRemaining && (patch.Planned != nil || patch.Actual != nil) {
		current, err := s.docs.FetchOne(ctx, s.scope(userID), id)
		if err != nil {
			return s.wrap("update", id, err)
		}

		planned := current.Planned
		if patch.Planned != nil {
			planned = *patch.Planned
		}
		actual := current.Actual
		if patch.Actual != nil {
			actual = *patch.Actual
		}
		remaining := planned - actual

		change.Planned = &planned
		change.Actual = &actual
		change.Remaining = &remaining
	}

	if err := s.docs.Patch(ctx, s.scope(userID), id, change); err != nil {
		return s.wrap("update", id, err)
	}
	return nil
}

// Delete удаляет запись; отсутствующий id дает NotFoundError.
func (s *Store) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	if err := s.docs.Remove(ctx, s.scope(userID), id); err != nil {
		return s.wrap("delete", id, err)
	}
	return nil
}

func (s *Store) wrap(op, id string, err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return &NotFoundError{Category: s.info.Category, ID: id}
	}
	return &StoreError{Op: op, Category: s.info.Category, Err: err}
}

func (s *Store) toLineItem(doc docstore.Document) models.LineItem {
	item := models.LineItem{
		ID:        doc.ID,
		Category:  s.info.Category,
		Title:     doc.Title,
		Currency:  models.Currency(doc.Currency),
		Planned:   doc.Planned,
		Actual:    doc.Actual,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if s.info.HasDate && doc.Date != nil {
		date := *doc.Date
		item.Date = &date
	}
	if s.info.HasRemaining && doc.Remaining != nil {
		remaining := *doc.Remaining
		item.Remaining = &remaining
	}
	return item
}

// Stores содержит по одному хранилищу на категорию в порядке сводного отчета.
type Stores []*Store

// NewStores создает хранилища всех категорий поверх одного источника документов.
func NewStores(docs docstore.Documents, opts ...Option) Stores {
	stores := make(Stores, 0, len(models.Categories))
	for _, info := range models.Categories {
		store, err := NewStore(docs, info.Category, opts...)
		if err != nil {
			panic(err)
		}
		stores = append(stores, store)
	}
	return stores
}

// For возвращает хранилище категории.
func (s Stores) For(category models.Category) (*Store, bool) {
	for _, store := range s {
		if store.Category() == category {
			return store, true
		}
	}
	return nil, false
}
