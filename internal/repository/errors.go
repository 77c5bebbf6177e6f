package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"example.com/budpal/backend/internal/docstore"
)

var (
	ErrNotFound = docstore.ErrNotFound
	ErrConflict = docstore.ErrConflict
)

const uniqueViolation = "23505"

// translate приводит ошибки pgx к ошибкам хранилища.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}
