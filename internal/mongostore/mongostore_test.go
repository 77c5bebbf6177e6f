package mongostore

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"example.com/budpal/backend/internal/docstore"
)

// TestTranslate проверяет перевод ошибок драйвера.
func TestTranslate(t *testing.T) {
	if err := translate(fmt.Errorf("find: %w", mongo.ErrNoDocuments)); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	if err := translate(dup); !errors.Is(err, docstore.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

// TestScopeFilter проверяет фильтр по пользователю и документу.
func TestScopeFilter(t *testing.T) {
	userID := uuid.New()
	scope := docstore.Scope{UserID: userID, Collection: "debts"}

	all := scopeFilter(scope, "")
	if len(all) != 1 || all["userId"] != userID.String() {
		t.Fatalf("unexpected filter: %v", all)
	}

	one := scopeFilter(scope, "abc")
	if one["_id"] != "abc" || one["userId"] != userID.String() {
		t.Fatalf("unexpected filter: %v", one)
	}
}

// TestLineItemDocToDocument проверяет перенос полей и UTC-временные метки.
func TestLineItemDocToDocument(t *testing.T) {
	local := time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("AMM", 3*3600))
	remaining := 5.0
	record := lineItemDoc{ID: "1", Title: "Coffee", Currency: "JOD", Planned: 10, Actual: 5, Remaining: &remaining, CreatedAt: local, UpdatedAt: local}

	doc := record.toDocument()
	if doc.ID != "1" || doc.Title != "Coffee" || doc.Remaining == nil || *doc.Remaining != 5 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.CreatedAt.Location() != time.UTC || !doc.CreatedAt.Equal(local) {
		t.Fatalf("expected UTC timestamp, got %v", doc.CreatedAt)
	}
}

// TestCreatedAtKeepsNanoseconds проверяет, что записи одной миллисекунды сохраняют порядок создания.
func TestCreatedAtKeepsNanoseconds(t *testing.T) {
	scope := docstore.Scope{UserID: uuid.New(), Collection: "dailyExpenses"}
	base := time.Date(2024, 3, 1, 10, 0, 0, 500_000, time.UTC)
	first := newLineItemDoc(scope, docstore.Document{Title: "first", CreatedAt: base, UpdatedAt: base})
	second := newLineItemDoc(scope, docstore.Document{Title: "second", CreatedAt: base.Add(200 * time.Microsecond), UpdatedAt: base})

	decode := func(record lineItemDoc) docstore.Document {
		raw, err := bson.Marshal(record)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var out lineItemDoc
		if err := bson.Unmarshal(raw, &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return out.toDocument()
	}

	a, b := decode(first), decode(second)
	if !a.CreatedAt.Equal(base) {
		t.Fatalf("expected %v, got %v", base, a.CreatedAt)
	}
	if !a.CreatedAt.Before(b.CreatedAt) {
		t.Fatalf("expected %v before %v", a.CreatedAt, b.CreatedAt)
	}

	// документы без createdAtNanos читаются по createdAt
	legacy := lineItemDoc{ID: "old", CreatedAt: base}
	if doc := legacy.toDocument(); !doc.CreatedAt.Equal(base) {
		t.Fatalf("expected legacy createdAt %v, got %v", base, doc.CreatedAt)
	}
}
