package appstate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"example.com/budpal/backend/internal/auth"
	"example.com/budpal/backend/internal/budget"
	"example.com/budpal/backend/internal/docstore"
	"example.com/budpal/backend/internal/identity"
	"example.com/budpal/backend/internal/memstore"
	"example.com/budpal/backend/internal/models"
	"example.com/budpal/backend/internal/notifications"
)

func amount(v float64) *float64 {
	return &v
}

// switchableDocuments отказывает в выборке, пока включен failing.
type switchableDocuments struct {
	docstore.Documents
	mu      sync.Mutex
	failing bool
}

func (d *switchableDocuments) setFailing(v bool) {
	d.mu.Lock()
	d.failing = v
	d.mu.Unlock()
}

func (d *switchableDocuments) FetchAll(ctx context.Context, scope docstore.Scope) ([]docstore.Document, error) {
	d.mu.Lock()
	failing := d.failing
	d.mu.Unlock()
	if failing {
		return nil, errors.New("backend unavailable")
	}
	return d.Documents.FetchAll(ctx, scope)
}

// recordingPublisher запоминает опубликованные события.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (p *recordingPublisher) Publish(_ uuid.UUID, event notifications.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

func newRegistry(docs docstore.Documents, publisher Publisher) *Registry {
	stores := budget.NewStores(docs)
	return NewRegistry(stores, budget.NewAggregator(stores), publisher, nil)
}

// TestAddReloadsCategoryAndOverview проверяет полную перезагрузку после изменения.
func TestAddReloadsCategoryAndOverview(t *testing.T) {
	publisher := &recordingPublisher{}
	registry := newRegistry(memstore.NewDocuments(), publisher)
	session := registry.Session(uuid.New())
	ctx := context.Background()

	id, err := session.Add(ctx, models.CategoryDaily, budget.ItemInput{Title: "Groceries", Currency: models.CurrencyUSD, Planned: amount(200), Actual: amount(250)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	snap := session.Snapshot()
	if snap.Loading {
		t.Fatal("expected loading to be false after the call")
	}
	if snap.Error != "" {
		t.Fatalf("expected no error, got %s", snap.Error)
	}
	daily := snap.Lists[models.CategoryDaily]
	if len(daily) != 1 || daily[0].ID != id || *daily[0].Remaining != -50 {
		t.Fatalf("unexpected daily list: %+v", daily)
	}
	if len(snap.Overview) != 1 || snap.Grand.TotalActual != 250 {
		t.Fatalf("unexpected overview: %+v grand=%+v", snap.Overview, snap.Grand)
	}
	if len(snap.Totals) != 5 {
		t.Fatalf("expected 5 totals, got %d", len(snap.Totals))
	}

	if err := session.Update(ctx, models.CategoryDaily, id, budget.ItemPatch{Actual: amount(180)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := *session.Snapshot().Lists[models.CategoryDaily][0].Remaining; got != 20 {
		t.Fatalf("expected remaining 20, got %v", got)
	}

	if err := session.Delete(ctx, models.CategoryDaily, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap = session.Snapshot()
	if len(snap.Lists[models.CategoryDaily]) != 0 || len(snap.Overview) != 0 {
		t.Fatalf("expected empty state after delete: %+v", snap)
	}

	types := publisher.types()
	if len(types) != 6 {
		t.Fatalf("expected 6 events, got %v", types)
	}
	for i, eventType := range types {
		want := notifications.EventCategoryUpdated
		if i%2 == 1 {
			want = notifications.EventOverviewUpdated
		}
		if eventType != want {
			t.Fatalf("expected %s at %d, got %s", want, i, eventType)
		}
	}
}

// TestErrorSlot проверяет запись и очистку ошибки, а также пропуск ошибок валидации.
func TestErrorSlot(t *testing.T) {
	docs := &switchableDocuments{Documents: memstore.NewDocuments()}
	session := newRegistry(docs, nil).Session(uuid.New())
	ctx := context.Background()

	docs.setFailing(true)
	if err := session.LoadOverview(ctx); err == nil {
		t.Fatal("expected overview error")
	}
	if got := session.Snapshot().Error; got != "Failed to load overview data" {
		t.Fatalf("unexpected error slot: %q", got)
	}

	_, err := session.Add(ctx, models.CategoryIncome, budget.ItemInput{Title: "", Currency: models.CurrencyUSD, Planned: amount(1), Actual: amount(1)})
	var vErr *budget.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := session.Snapshot().Error; got != "Failed to load overview data" {
		t.Fatalf("validation error must not touch the slot, got %q", got)
	}

	docs.setFailing(false)
	if err := session.LoadAll(ctx); err != nil {
		t.Fatalf("load all: %v", err)
	}
	snap := session.Snapshot()
	if snap.Error != "" || snap.Loading {
		t.Fatalf("expected clean state, got error=%q loading=%v", snap.Error, snap.Loading)
	}
	if snap.LoadedAt == nil {
		t.Fatal("expected loaded_at to be set")
	}

	if err := session.Delete(ctx, models.CategoryDebt, "missing"); !errors.Is(err, budget.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := session.Snapshot().Error; got != "Failed to delete debt: item not found" {
		t.Fatalf("unexpected error slot: %q", got)
	}
}

// TestSnapshotIsCopy проверяет, что изменение снимка не влияет на состояние.
func TestSnapshotIsCopy(t *testing.T) {
	session := newRegistry(memstore.NewDocuments(), nil).Session(uuid.New())
	ctx := context.Background()

	if _, err := session.Add(ctx, models.CategoryDaily, budget.ItemInput{Title: "Coffee", Currency: models.CurrencyEUR, Planned: amount(10), Actual: amount(4)}); err != nil {
		t.Fatalf("add: %v", err)
	}

	snap := session.Snapshot()
	*snap.Lists[models.CategoryDaily][0].Remaining = 999
	snap.Overview[0].Title = "changed"

	again := session.Snapshot()
	if *again.Lists[models.CategoryDaily][0].Remaining != 6 || again.Overview[0].Title != "Coffee" {
		t.Fatalf("state leaked through snapshot: %+v", again)
	}
}

// TestRegistryDropsOnSignOut проверяет сброс состояния при выходе.
func TestRegistryDropsOnSignOut(t *testing.T) {
	hub := notifications.NewHub()
	registry := newRegistry(memstore.NewDocuments(), hub)
	manager := auth.NewTokenManager("secret", "budpal", time.Minute, time.Hour)
	svc := identity.NewService(memstore.NewUsers(), memstore.NewRefreshTokens(), manager)

	stop := registry.Watch(svc)
	defer stop()

	ctx := context.Background()
	session, err := svc.Register(ctx, "user@example.com", "password", nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	stream, unsubscribe := hub.Subscribe(session.User.ID)
	defer unsubscribe()

	first := registry.Session(session.User.ID)
	if registry.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", registry.Len())
	}

	if err := svc.Logout(ctx, session.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected sessions to be dropped, got %d", registry.Len())
	}
	if registry.Session(session.User.ID) == first {
		t.Fatal("expected a fresh session after sign out")
	}

	select {
	case event, ok := <-stream:
		if !ok || event.Type != notifications.EventSessionChanged {
			t.Fatalf("expected session_changed, got %+v ok=%v", event, ok)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected session_changed event")
	}
	if _, ok := <-stream; ok {
		t.Fatal("expected stream to be closed after sign out")
	}
}

// TestUnknownCategory проверяет ошибку для неизвестной категории.
func TestUnknownCategory(t *testing.T) {
	session := newRegistry(memstore.NewDocuments(), nil).Session(uuid.New())

	err := session.Load(context.Background(), "Savings")
	var vErr *budget.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "category" {
		t.Fatalf("expected category validation error, got %v", err)
	}
}

// TestRegistryDropsOnRejectedRefresh проверяет сброс состояния, когда refresh-токен больше не принимается.
func TestRegistryDropsOnRejectedRefresh(t *testing.T) {
	registry := newRegistry(memstore.NewDocuments(), nil)
	manager := auth.NewTokenManager("secret", "budpal", time.Minute, time.Hour)
	svc := identity.NewService(memstore.NewUsers(), memstore.NewRefreshTokens(), manager)

	stop := registry.Watch(svc)
	defer stop()

	ctx := context.Background()
	session, err := svc.Register(ctx, "user@example.com", "password", nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Refresh(ctx, session.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	registry.Session(session.User.ID)
	if registry.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", registry.Len())
	}

	if _, err := svc.Refresh(ctx, session.RefreshToken); !errors.Is(err, identity.ErrInvalidSession) {
		t.Fatalf("expected invalid session, got %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected session to be dropped, got %d", registry.Len())
	}
}
