package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/budpal/backend/internal/docstore"
)

type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository создает репозиторий записей категорий.
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, title, currency, planned, actual, item_date::text, remaining, created_at, updated_at`

func scanDocument(row pgx.Row) (docstore.Document, error) {
	var doc docstore.Document
	var id uuid.UUID
	err := row.Scan(&id, &doc.Title, &doc.Currency, &doc.Planned, &doc.Actual, &doc.Date, &doc.Remaining, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return doc, translate(err)
	}
	doc.ID = id.String()
	return doc, nil
}

// Insert сохраняет запись и возвращает ее идентификатор.
func (r *DocumentRepository) Insert(ctx context.Context, scope docstore.Scope, doc docstore.Document) (string, error) {
	id := uuid.New()
	_, err := r.db.Exec(ctx,
		`INSERT INTO line_items (id, user_id, collection, title, currency, planned, actual, item_date, remaining, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10, $11)`,
		id, scope.UserID, scope.Collection, doc.Title, doc.Currency, doc.Planned, doc.Actual, doc.Date, doc.Remaining, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return "", translate(err)
	}
	return id.String(), nil
}

// FetchAll возвращает все записи коллекции пользователя.
func (r *DocumentRepository) FetchAll(ctx context.Context, scope docstore.Scope) ([]docstore.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+`
		 FROM line_items
		 WHERE user_id = $1 AND collection = $2
		 ORDER BY created_at, id`,
		scope.UserID, scope.Collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// FetchOne возвращает запись по идентификатору.
func (r *DocumentRepository) FetchOne(ctx context.Context, scope docstore.Scope, id string) (docstore.Document, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return docstore.Document{}, ErrNotFound
	}

	return scanDocument(r.db.QueryRow(ctx,
		`SELECT `+documentColumns+`
		 FROM line_items
		 WHERE id = $1 AND user_id = $2 AND collection = $3`,
		docID, scope.UserID, scope.Collection,
	))
}

// Patch обновляет переданные поля одной командой.
func (r *DocumentRepository) Patch(ctx context.Context, scope docstore.Scope, id string, patch docstore.Patch) error {
	docID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	cmd, err := r.db.Exec(ctx,
		`UPDATE line_items
		 SET title = COALESCE($4, title),
		     currency = COALESCE($5, currency),
		     planned = COALESCE($6, planned),
		     actual = COALESCE($7, actual),
		     item_date = COALESCE($8::date, item_date),
		     remaining = COALESCE($9, remaining),
		     updated_at = COALESCE($10, updated_at)
		 WHERE id = $1 AND user_id = $2 AND collection = $3`,
		docID, scope.UserID, scope.Collection,
		patch.Title, patch.Currency, patch.Planned, patch.Actual, patch.Date, patch.Remaining, nullTime(patch),
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove удаляет запись.
func (r *DocumentRepository) Remove(ctx context.Context, scope docstore.Scope, id string) error {
	docID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	cmd, err := r.db.Exec(ctx,
		`DELETE FROM line_items
		 WHERE id = $1 AND user_id = $2 AND collection = $3`,
		docID, scope.UserID, scope.Collection,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(patch docstore.Patch) any {
	if patch.UpdatedAt.IsZero() {
		return nil
	}
	return patch.UpdatedAt
}

// NewBackend собирает PostgreSQL-реализацию хранилищ.
func NewBackend(db *pgxpool.Pool) docstore.Backend {
	return docstore.Backend{
		Name:          "postgres",
		Documents:     NewDocumentRepository(db),
		Users:         NewUserRepository(db),
		RefreshTokens: NewRefreshTokenRepository(db),
		Ping:          db.Ping,
		Close: func(context.Context) error {
			db.Close()
			return nil
		},
	}
}
