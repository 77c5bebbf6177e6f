// Package appstate держит последнее прочитанное состояние пользователя:
// списки категорий, сводку, флаг загрузки и последнюю ошибку.
package appstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"example.com/budpal/backend/internal/budget"
	"example.com/budpal/backend/internal/models"
	"example.com/budpal/backend/internal/notifications"
)

type Publisher interface {
	Publish(userID uuid.UUID, event notifications.Event)
}

// nouns хранит формы названий категорий для сообщений об ошибках.
var nouns = map[models.Category]struct{ one, many string }{
	models.CategoryFixed:      {"fixed expense", "fixed expenses"},
	models.CategoryDaily:      {"daily expense", "daily expenses"},
	models.CategoryDebt:       {"debt", "debts"},
	models.CategoryIncome:     {"income", "income"},
	models.CategoryInvestment: {"investment", "investments"},
}

// Snapshot содержит копию состояния, безопасную для сериализации.
type Snapshot struct {
	Lists    map[models.Category][]models.LineItem `json:"lists"`
	Overview []models.OverviewItem                `json:"overview"`
	Totals   []models.CategoryTotal               `json:"totals"`
	Grand    models.GrandTotals                   `json:"grand"`
	Loading  bool                                 `json:"loading"`
	Error    string                               `json:"error,omitempty"`
	LoadedAt *time.Time                           `json:"loaded_at,omitempty"`
}

type Session struct {
	userID     uuid.UUID
	stores     budget.Stores
	aggregator *budget.Aggregator
	publisher  Publisher
	logger     *slog.Logger

	mu       sync.RWMutex
	lists    map[models.Category][]models.LineItem
	overview []models.OverviewItem
	inFlight int
	errMsg   string
	loadedAt time.Time
}

func newSession(userID uuid.UUID, stores budget.Stores, aggregator *budget.Aggregator, publisher Publisher, logger *slog.Logger) *Session {
	return &Session{
		userID:     userID,
		stores:     stores,
		aggregator: aggregator,
		publisher:  publisher,
		logger:     logger,
		lists:      make(map[models.Category][]models.LineItem),
	}
}

func (s *Session) UserID() uuid.UUID {
	return s.userID
}

// Load перечитывает список одной категории.
func (s *Session) Load(ctx context.Context, category models.Category) error {
	store, err := s.store(category)
	if err != nil {
		return err
	}

	s.begin()
	err = s.reload(ctx, store)
	s.end(err, "Failed to load "+nouns[category].many)
	return err
}

// LoadOverview перечитывает сводку по всем категориям.
func (s *Session) LoadOverview(ctx context.Context) error {
	s.begin()
	err := s.reloadOverview(ctx)
	s.end(err, "Failed to load overview data")
	return err
}

// LoadAll параллельно загружает все категории и сводку.
// Каждая загрузка записывает свою ошибку; возвращается первая.
func (s *Session) LoadAll(ctx context.Context) error {
	var g errgroup.Group
	for _, store := range s.stores {
		g.Go(func() error {
			return s.Load(ctx, store.Category())
		})
	}
	g.Go(func() error {
		return s.LoadOverview(ctx)
	})
	return g.Wait()
}

// Add создает запись и перечитывает категорию и сводку.
func (s *Session) Add(ctx context.Context, category models.Category, input budget.ItemInput) (string, error) {
	store, err := s.store(category)
	if err != nil {
		return "", err
	}

	s.begin()
	id, err := store.Create(ctx, s.userID, input)
	if err != nil {
		s.end(err, "Failed to add "+nouns[category].one)
		return "", err
	}
	s.end(nil, "")

	s.afterMutation(ctx, store, "created", id)
	return id, nil
}

// Update изменяет запись и перечитывает категорию и сводку.
func (s *Session) Update(ctx context.Context, category models.Category, id string, patch budget.ItemPatch) error {
	store, err := s.store(category)
	if err != nil {
		return err
	}

	s.begin()
	if err := store.Update(ctx, s.userID, id, patch); err != nil {
		s.end(err, "Failed to update "+nouns[category].one)
		return err
	}
	s.end(nil, "")

	s.afterMutation(ctx, store, "updated", id)
	return nil
}

// Delete удаляет запись и перечитывает категорию и сводку.
func (s *Session) Delete(ctx context.Context, category models.Category, id string) error {
	store, err := s.store(category)
	if err != nil {
		return err
	}

	s.begin()
	if err := store.Delete(ctx, s.userID, id); err != nil {
		s.end(err, "Failed to delete "+nouns[category].one)
		return err
	}
	s.end(nil, "")

	s.afterMutation(ctx, store, "deleted", id)
	return nil
}

// Snapshot возвращает глубокую копию текущего состояния.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Lists:    make(map[models.Category][]models.LineItem, len(s.stores)),
		Overview: make([]models.OverviewItem, 0, len(s.overview)),
		Loading:  s.inFlight > 0,
		Error:    s.errMsg,
	}
	for _, store := range s.stores {
		items := s.lists[store.Category()]
		copied := make([]models.LineItem, 0, len(items))
		for _, item := range items {
			copied = append(copied, copyLineItem(item))
		}
		snap.Lists[store.Category()] = copied
	}
	for _, item := range s.overview {
		snap.Overview = append(snap.Overview, copyOverviewItem(item))
	}
	snap.Totals = budget.CategoryTotals(snap.Overview)
	snap.Grand = budget.GrandTotals(snap.Overview)
	if !s.loadedAt.IsZero() {
		loadedAt := s.loadedAt
		snap.LoadedAt = &loadedAt
	}
	return snap
}

// afterMutation перечитывает категорию и сводку; их ошибки попадают в слот ошибки.
func (s *Session) afterMutation(ctx context.Context, store *budget.Store, action, id string) {
	category := store.Category()

	if err := s.Load(ctx, category); err == nil {
		s.publish(notifications.EventCategoryUpdated, map[string]string{
			"category": string(category),
			"action":   action,
			"id":       id,
		})
	}

	if err := s.LoadOverview(ctx); err == nil {
		s.publish(notifications.EventOverviewUpdated, map[string]string{
			"category": string(category),
		})
	}
}

func (s *Session) reload(ctx context.Context, store *budget.Store) error {
	items, err := store.List(ctx, s.userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lists[store.Category()] = items
	s.loadedAt = time.Now().UTC()
	s.mu.Unlock()
	return nil
}

func (s *Session) reloadOverview(ctx context.Context) error {
	items, err := s.aggregator.Items(ctx, s.userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.overview = items
	s.loadedAt = time.Now().UTC()
	s.mu.Unlock()
	return nil
}

func (s *Session) store(category models.Category) (*budget.Store, error) {
	store, ok := s.stores.For(category)
	if !ok {
		return nil, &budget.ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", category)}
	}
	return store, nil
}

func (s *Session) begin() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
}

// end снимает флаг загрузки. Ошибки валидации в слот не попадают,
// успешный вызов очищает слот.
func (s *Session) end(err error, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight--

	var vErr *budget.ValidationError
	switch {
	case err == nil:
		s.errMsg = ""
	case errors.As(err, &vErr):
	case errors.Is(err, budget.ErrNotFound):
		s.errMsg = message + ": item not found"
	default:
		s.errMsg = message
		s.logger.Error("state call failed",
			slog.String("user_id", s.userID.String()),
			slog.String("message", message),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Session) publish(eventType string, data any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(s.userID, notifications.Event{Type: eventType, Data: data})
}

func copyLineItem(item models.LineItem) models.LineItem {
	if item.Date != nil {
		date := *item.Date
		item.Date = &date
	}
	if item.Remaining != nil {
		remaining := *item.Remaining
		item.Remaining = &remaining
	}
	return item
}

func copyOverviewItem(item models.OverviewItem) models.OverviewItem {
	if item.Date != nil {
		date := *item.Date
		item.Date = &date
	}
	if item.Remaining != nil {
		remaining := *item.Remaining
		item.Remaining = &remaining
	}
	return item
}
