// Package memstore хранит данные в памяти процесса: STORAGE_BACKEND=memory и тесты.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"example.com/budpal/backend/internal/docstore"
)

type Documents struct {
	mu          sync.Mutex
	collections map[docstore.Scope]map[string]docstore.Document
}

// NewDocuments создает пустое хранилище документов.
func NewDocuments() *Documents {
	return &Documents{collections: make(map[docstore.Scope]map[string]docstore.Document)}
}

// Insert сохраняет документ и возвращает присвоенный идентификатор.
func (s *Documents) Insert(ctx context.Context, scope docstore.Scope, doc docstore.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[scope]
	if !ok {
		docs = make(map[string]docstore.Document)
		s.collections[scope] = docs
	}

	doc.ID = uuid.NewString()
	docs[doc.ID] = cloneDocument(doc)
	return doc.ID, nil
}

// FetchAll возвращает копии всех документов коллекции.
func (s *Documents) FetchAll(ctx context.Context, scope docstore.Scope) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[scope]
	out := make([]docstore.Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, cloneDocument(doc))
	}
	return out, nil
}

// FetchOne возвращает документ по идентификатору.
func (s *Documents) FetchOne(ctx context.Context, scope docstore.Scope, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[scope][id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return cloneDocument(doc), nil
}

// Patch изменяет поля документа.
func (s *Documents) Patch(ctx context.Context, scope docstore.Scope, id string, patch docstore.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[scope]
	doc, ok := docs[id]
	if !ok {
		return docstore.ErrNotFound
	}
	docs[id] = patch.Apply(doc)
	return nil
}

// Remove удаляет документ.
func (s *Documents) Remove(ctx context.Context, scope docstore.Scope, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[scope]
	if _, ok := docs[id]; !ok {
		return docstore.ErrNotFound
	}
	delete(docs, id)
	return nil
}

func cloneDocument(doc docstore.Document) docstore.Document {
	if doc.Date != nil {
		value := *doc.Date
		doc.Date = &value
	}
	if doc.Remaining != nil {
		value := *doc.Remaining
		doc.Remaining = &value
	}
	return doc
}
