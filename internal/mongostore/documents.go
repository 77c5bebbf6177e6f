// Package mongostore хранит коллекции категорий и учетные записи в MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"example.com/budpal/backend/internal/docstore"
)

type lineItemDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	Title     string    `bson:"title"`
	Currency  string    `bson:"currency"`
	Planned   float64   `bson:"planned"`
	Actual    float64   `bson:"actual"`
	Date      *string   `bson:"date,omitempty"`
	Remaining *float64  `bson:"remaining,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`

	// BSON datetime хранит только миллисекунды; порядок записей держится на наносекундах.
	CreatedAtNanos int64 `bson:"createdAtNanos,omitempty"`
}

func newLineItemDoc(scope docstore.Scope, doc docstore.Document) lineItemDoc {
	record := lineItemDoc{
		ID:        uuid.NewString(),
		UserID:    scope.UserID.String(),
		Title:     doc.Title,
		Currency:  doc.Currency,
		Planned:   doc.Planned,
		Actual:    doc.Actual,
		Date:      doc.Date,
		Remaining: doc.Remaining,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if !doc.CreatedAt.IsZero() {
		record.CreatedAtNanos = doc.CreatedAt.UnixNano()
	}
	return record
}

func (d lineItemDoc) toDocument() docstore.Document {
	createdAt := d.CreatedAt.UTC()
	if d.CreatedAtNanos != 0 {
		createdAt = time.Unix(0, d.CreatedAtNanos).UTC()
	}
	return docstore.Document{
		ID:        d.ID,
		Title:     d.Title,
		Currency:  d.Currency,
		Planned:   d.Planned,
		Actual:    d.Actual,
		Date:      d.Date,
		Remaining: d.Remaining,
		CreatedAt: createdAt,
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// Documents хранит каждую категорию в отдельной коллекции с полем userId.
type Documents struct {
	db *mongo.Database
}

// NewDocuments создает хранилище документов поверх базы MongoDB.
func NewDocuments(db *mongo.Database) *Documents {
	return &Documents{db: db}
}

func scopeFilter(scope docstore.Scope, id string) bson.M {
	filter := bson.M{"userId": scope.UserID.String()}
	if id != "" {
		filter["_id"] = id
	}
	return filter
}

// Insert сохраняет документ и возвращает его идентификатор.
func (s *Documents) Insert(ctx context.Context, scope docstore.Scope, doc docstore.Document) (string, error) {
	record := newLineItemDoc(scope, doc)
	if _, err := s.db.Collection(scope.Collection).InsertOne(ctx, record); err != nil {
		return "", fmt.Errorf("insert into %s: %w", scope.Collection, translate(err))
	}
	return record.ID, nil
}

// FetchAll возвращает все документы пользователя в коллекции.
func (s *Documents) FetchAll(ctx context.Context, scope docstore.Scope) ([]docstore.Document, error) {
	cursor, err := s.db.Collection(scope.Collection).Find(ctx, scopeFilter(scope, ""))
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", scope.Collection, err)
	}
	defer cursor.Close(ctx)

	var docs []docstore.Document
	for cursor.Next(ctx) {
		var record lineItemDoc
		if err := cursor.Decode(&record); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", scope.Collection, err)
		}
		docs = append(docs, record.toDocument())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", scope.Collection, err)
	}
	return docs, nil
}

// FetchOne возвращает документ по идентификатору.
func (s *Documents) FetchOne(ctx context.Context, scope docstore.Scope, id string) (docstore.Document, error) {
	var record lineItemDoc
	err := s.db.Collection(scope.Collection).FindOne(ctx, scopeFilter(scope, id)).Decode(&record)
	if err != nil {
		return docstore.Document{}, translate(err)
	}
	return record.toDocument(), nil
}

// Patch выставляет переданные поля через $set.
func (s *Documents) Patch(ctx context.Context, scope docstore.Scope, id string, patch docstore.Patch) error {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Currency != nil {
		set["currency"] = *patch.Currency
	}
	if patch.Planned != nil {
		set["planned"] = *patch.Planned
	}
	if patch.Actual != nil {
		set["actual"] = *patch.Actual
	}
	if patch.Date != nil {
		set["date"] = *patch.Date
	}
	if patch.Remaining != nil {
		set["remaining"] = *patch.Remaining
	}
	if !patch.UpdatedAt.IsZero() {
		set["updatedAt"] = patch.UpdatedAt
	}

	collection := s.db.Collection(scope.Collection)
	if len(set) == 0 {
		count, err := collection.CountDocuments(ctx, scopeFilter(scope, id))
		if err != nil {
			return err
		}
		if count == 0 {
			return docstore.ErrNotFound
		}
		return nil
	}

	result, err := collection.UpdateOne(ctx, scopeFilter(scope, id), bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update %s: %w", scope.Collection, err)
	}
	if result.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

// Remove удаляет документ.
func (s *Documents) Remove(ctx context.Context, scope docstore.Scope, id string) error {
	result, err := s.db.Collection(scope.Collection).DeleteOne(ctx, scopeFilter(scope, id))
	if err != nil {
		return fmt.Errorf("delete from %s: %w", scope.Collection, err)
	}
	if result.DeletedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}
