// Package identity регистрирует пользователей, выдает и отзывает сессии
// и уведомляет подписчиков о входе и выходе.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"example.com/budpal/backend/internal/auth"
	"example.com/budpal/backend/internal/docstore"
	"example.com/budpal/backend/internal/models"
)

const MinPasswordLength = 6

// Error описывает ошибку учетной записи с кодом и сообщением для пользователя.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrEmailInUse         = &Error{Code: "email-already-in-use", Message: "This email is already registered"}
	ErrInvalidEmail       = &Error{Code: "invalid-email", Message: "Invalid email address"}
	ErrWeakPassword       = &Error{Code: "weak-password", Message: "Password is too weak (minimum 6 characters)"}
	ErrInvalidCredentials = &Error{Code: "invalid-credential", Message: "Invalid email or password"}
	ErrUserNotFound       = &Error{Code: "user-not-found", Message: "No account found with this email"}
	ErrInvalidSession     = &Error{Code: "invalid-session", Message: "Session has expired. Please sign in again"}
)

type ChangeKind string

const (
	SignedIn  ChangeKind = "signed_in"
	SignedOut ChangeKind = "signed_out"
)

// SessionChange описывает вход или выход пользователя.
type SessionChange struct {
	Kind   ChangeKind
	UserID uuid.UUID
	User   *models.User
}

type Session struct {
	User             models.User
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type Service struct {
	users    docstore.Users
	tokens   docstore.RefreshTokens
	manager  *auth.TokenManager
	validate *validator.Validate
	now      func() time.Time

	mu        sync.Mutex
	listeners map[uint64]func(SessionChange)
	nextID    uint64
}

// NewService создает сервис учетных записей.
func NewService(users docstore.Users, tokens docstore.RefreshTokens, manager *auth.TokenManager) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		manager:   manager,
		validate:  validator.New(),
		now:       time.Now,
		listeners: make(map[uint64]func(SessionChange)),
	}
}

// Register создает пользователя и сразу открывает сессию.
func (s *Service) Register(ctx context.Context, email, password string, name *string) (Session, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return Session{}, ErrInvalidEmail
	}

	password = strings.TrimSpace(password)
	if len(password) < MinPasswordLength {
		return Session{}, ErrWeakPassword
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, email, passwordHash, normalizeName(name))
	if err != nil {
		if errors.Is(err, docstore.ErrConflict) {
			return Session{}, ErrEmailInUse
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	session, err := s.issue(ctx, user)
	if err != nil {
		return Session{}, err
	}

	s.notify(SessionChange{Kind: SignedIn, UserID: user.ID, User: &user})
	return session, nil
}

// Login проверяет пароль и открывает сессию.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return Session{}, ErrInvalidEmail
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("get user: %w", err)
	}

	if err := auth.ComparePassword(user.PasswordHash, strings.TrimSpace(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	session, err := s.issue(ctx, user)
	if err != nil {
		return Session{}, err
	}

	s.notify(SessionChange{Kind: SignedIn, UserID: user.ID, User: &user})
	return session, nil
}

// Refresh меняет refresh-токен на новую пару токенов. Отозванный или
// просроченный токен известного пользователя завершает его сессию.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := s.manager.ParseRefreshToken(refreshToken)
	if err != nil {
		return Session{}, ErrInvalidSession
	}

	refreshID, err := uuid.Parse(claims.ID)
	if err != nil {
		return Session{}, ErrInvalidSession
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Session{}, ErrInvalidSession
	}

	stored, err := s.tokens.GetByID(ctx, refreshID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Session{}, s.expire(userID)
		}
		return Session{}, fmt.Errorf("get refresh token: %w", err)
	}

	if stored.UserID != userID {
		return Session{}, ErrInvalidSession
	}
	if stored.RevokedAt != nil || s.now().After(stored.ExpiresAt) {
		return Session{}, s.expire(userID)
	}

	if !auth.CompareTokenHash(stored.TokenHash, refreshToken) {
		return Session{}, s.expire(userID)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Session{}, s.expire(userID)
		}
		return Session{}, fmt.Errorf("get user: %w", err)
	}

	newID := uuid.New()
	pair, err := s.manager.NewTokenPair(userID, newID)
	if err != nil {
		return Session{}, fmt.Errorf("issue tokens: %w", err)
	}

	newToken := models.RefreshToken{
		ID:        newID,
		UserID:    userID,
		TokenHash: auth.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}
	if err := s.tokens.Rotate(ctx, stored.ID, newToken); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Session{}, s.expire(userID)
		}
		return Session{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return newSession(user, pair), nil
}

// Logout отзывает refresh-токен. Повторный выход не считается ошибкой.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.manager.ParseRefreshToken(refreshToken)
	if err != nil {
		return ErrInvalidSession
	}

	refreshID, err := uuid.Parse(claims.ID)
	if err != nil {
		return ErrInvalidSession
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ErrInvalidSession
	}

	if err := s.tokens.Revoke(ctx, refreshID, nil); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.notify(SessionChange{Kind: SignedOut, UserID: userID})
	return nil
}

// Me возвращает текущего пользователя.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// OnSessionChange подписывает callback на вход и выход; возвращает функцию отписки.
func (s *Service) OnSessionChange(callback func(SessionChange)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = callback
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// expire сообщает подписчикам о выходе пользователя, чья сессия больше недействительна.
func (s *Service) expire(userID uuid.UUID) error {
	s.notify(SessionChange{Kind: SignedOut, UserID: userID})
	return ErrInvalidSession
}

func (s *Service) notify(change SessionChange) {
	s.mu.Lock()
	callbacks := make([]func(SessionChange), 0, len(s.listeners))
	for _, cb := range s.listeners {
		callbacks = append(callbacks, cb)
	}
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(change)
	}
}

func (s *Service) issue(ctx context.Context, user models.User) (Session, error) {
	refreshID := uuid.New()
	pair, err := s.manager.NewTokenPair(user.ID, refreshID)
	if err != nil {
		return Session{}, fmt.Errorf("issue tokens: %w", err)
	}

	token := models.RefreshToken{
		ID:        refreshID,
		UserID:    user.ID,
		TokenHash: auth.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return Session{}, fmt.Errorf("store refresh token: %w", err)
	}

	return newSession(user, pair), nil
}

func newSession(user models.User, pair auth.TokenPair) Session {
	return Session{
		User:             user,
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeName(name *string) *string {
	if name == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}

	return &trimmed
}
