package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"example.com/budpal/backend/internal/docstore"
	"example.com/budpal/backend/internal/models"
)

// TestDocumentsScopeIsolation проверяет, что коллекции разных пользователей не пересекаются.
func TestDocumentsScopeIsolation(t *testing.T) {
	store := NewDocuments()
	ctx := context.Background()

	alice := docstore.Scope{UserID: uuid.New(), Collection: "fixedExpenses"}
	bob := docstore.Scope{UserID: uuid.New(), Collection: "fixedExpenses"}

	id, err := store.Insert(ctx, alice, docstore.Document{Title: "Rent", Planned: 500})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := store.FetchOne(ctx, bob, id); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected not found in other scope, got %v", err)
	}

	docs, err := store.FetchAll(ctx, bob)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty collection, got %d", len(docs))
	}
}

// TestDocumentsPatchAndRemove проверяет частичное обновление и удаление.
func TestDocumentsPatchAndRemove(t *testing.T) {
	store := NewDocuments()
	ctx := context.Background()
	scope := docstore.Scope{UserID: uuid.New(), Collection: "dailyExpenses"}

	id, err := store.Insert(ctx, scope, docstore.Document{Title: "Coffee", Planned: 10, Actual: 4})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	actual := 7.0
	updatedAt := time.Now().UTC()
	if err := store.Patch(ctx, scope, id, docstore.Patch{Actual: &actual, UpdatedAt: updatedAt}); err != nil {
		t.Fatalf("patch: %v", err)
	}

	doc, err := store.FetchOne(ctx, scope, id)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if doc.Title != "Coffee" || doc.Planned != 10 || doc.Actual != 7 {
		t.Fatalf("unexpected document after patch: %+v", doc)
	}
	if !doc.UpdatedAt.Equal(updatedAt) {
		t.Fatalf("expected updated_at to be set")
	}

	if err := store.Remove(ctx, scope, id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(ctx, scope, id); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
	if err := store.Patch(ctx, scope, id, docstore.Patch{Actual: &actual}); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected not found on patch, got %v", err)
	}
}

// TestUsersConflict проверяет уникальность email без учета регистра.
func TestUsersConflict(t *testing.T) {
	users := NewUsers()
	ctx := context.Background()

	if _, err := users.Create(ctx, "a@example.com", "hash", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := users.Create(ctx, "A@example.com", "hash", nil); !errors.Is(err, docstore.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

// TestRefreshTokensRotate проверяет, что старый токен нельзя повернуть дважды.
func TestRefreshTokensRotate(t *testing.T) {
	tokens := NewRefreshTokens()
	ctx := context.Background()
	userID := uuid.New()

	old := models.RefreshToken{ID: uuid.New(), UserID: userID, TokenHash: "a", ExpiresAt: time.Now().Add(time.Hour)}
	if err := tokens.Create(ctx, old); err != nil {
		t.Fatalf("create: %v", err)
	}

	next := models.RefreshToken{ID: uuid.New(), UserID: userID, TokenHash: "b", ExpiresAt: time.Now().Add(time.Hour)}
	if err := tokens.Rotate(ctx, old.ID, next); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	stored, err := tokens.GetByID(ctx, old.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.RevokedAt == nil || stored.ReplacedBy == nil || *stored.ReplacedBy != next.ID {
		t.Fatalf("expected old token to be revoked and replaced")
	}

	again := models.RefreshToken{ID: uuid.New(), UserID: userID, TokenHash: "c", ExpiresAt: time.Now().Add(time.Hour)}
	if err := tokens.Rotate(ctx, old.ID, again); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected not found on second rotate, got %v", err)
	}
}
