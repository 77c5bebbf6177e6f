package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/budpal/backend/internal/docstore"
	"example.com/budpal/backend/internal/models"
)

type Users struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]models.User
	byEmail map[string]uuid.UUID
}

// NewUsers создает in-memory репозиторий пользователей.
func NewUsers() *Users {
	return &Users{
		byID:    make(map[uuid.UUID]models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Create создает пользователя; повторный email дает ErrConflict.
func (s *Users) Create(_ context.Context, email, passwordHash string, name *string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.byEmail[key]; exists {
		return models.User{}, docstore.ErrConflict
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[user.ID] = user
	s.byEmail[key] = user.ID
	return user, nil
}

// GetByEmail возвращает пользователя по email.
func (s *Users) GetByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return models.User{}, docstore.ErrNotFound
	}
	return s.byID[id], nil
}

// GetByID возвращает пользователя по идентификатору.
func (s *Users) GetByID(_ context.Context, id uuid.UUID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return models.User{}, docstore.ErrNotFound
	}
	return user, nil
}

type RefreshTokens struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]models.RefreshToken
}

// NewRefreshTokens создает in-memory хранилище refresh-токенов.
func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{tokens: make(map[uuid.UUID]models.RefreshToken)}
}

// Create сохраняет refresh-токен.
func (s *RefreshTokens) Create(_ context.Context, token models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[token.ID]; exists {
		return docstore.ErrConflict
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	s.tokens[token.ID] = token
	return nil
}

// GetByID возвращает refresh-токен по идентификатору.
func (s *RefreshTokens) GetByID(_ context.Context, id uuid.UUID) (models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[id]
	if !ok {
		return models.RefreshToken{}, docstore.ErrNotFound
	}
	return token, nil
}

// Revoke помечает refresh-токен отозванным.
func (s *RefreshTokens) Revoke(_ context.Context, id uuid.UUID, replacedBy *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.revokeLocked(id, replacedBy)
}

// Rotate заменяет старый refresh-токен на новый.
func (s *RefreshTokens) Rotate(_ context.Context, oldID uuid.UUID, newToken models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replacedBy := newToken.ID
	if err := s.revokeLocked(oldID, &replacedBy); err != nil {
		return err
	}
	if newToken.CreatedAt.IsZero() {
		newToken.CreatedAt = time.Now().UTC()
	}
	s.tokens[newToken.ID] = newToken
	return nil
}

func (s *RefreshTokens) revokeLocked(id uuid.UUID, replacedBy *uuid.UUID) error {
	token, ok := s.tokens[id]
	if !ok || token.RevokedAt != nil {
		return docstore.ErrNotFound
	}

	now := time.Now().UTC()
	token.RevokedAt = &now
	token.ReplacedBy = replacedBy
	s.tokens[id] = token
	return nil
}

// NewBackend собирает in-memory реализацию всех хранилищ.
func NewBackend() docstore.Backend {
	return docstore.Backend{
		Name:          "memory",
		Documents:     NewDocuments(),
		Users:         NewUsers(),
		RefreshTokens: NewRefreshTokens(),
		Ping:          func(context.Context) error { return nil },
		Close:         func(context.Context) error { return nil },
	}
}
