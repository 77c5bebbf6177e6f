package appstate

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"example.com/budpal/backend/internal/budget"
	"example.com/budpal/backend/internal/identity"
	"example.com/budpal/backend/internal/notifications"
)

type SessionSource interface {
	OnSessionChange(callback func(identity.SessionChange)) func()
}

// Registry хранит состояние по пользователям; состояние живет до выхода.
type Registry struct {
	stores     budget.Stores
	aggregator *budget.Aggregator
	publisher  Publisher
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry создает реестр состояний.
func NewRegistry(stores budget.Stores, aggregator *budget.Aggregator, publisher Publisher, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		stores:     stores,
		aggregator: aggregator,
		publisher:  publisher,
		logger:     logger,
		sessions:   make(map[uuid.UUID]*Session),
	}
}

// Session возвращает состояние пользователя, создавая его при первом обращении.
func (r *Registry) Session(userID uuid.UUID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[userID]
	if !ok {
		session = newSession(userID, r.stores, r.aggregator, r.publisher, r.logger)
		r.sessions[userID] = session
	}
	return session
}

// Drop сбрасывает состояние пользователя.
func (r *Registry) Drop(userID uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, userID)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Watch связывает реестр с входом и выходом: выход сбрасывает состояние
// и отправляет session_changed в поток пользователя.
func (r *Registry) Watch(source SessionSource) func() {
	return source.OnSessionChange(func(change identity.SessionChange) {
		if change.Kind == identity.SignedOut {
			r.Drop(change.UserID)
		}
		if r.publisher == nil {
			return
		}
		r.publisher.Publish(change.UserID, notifications.Event{
			Type: notifications.EventSessionChanged,
			Data: map[string]string{"state": string(change.Kind)},
		})
		if d, ok := r.publisher.(disconnecter); ok && change.Kind == identity.SignedOut {
			d.Disconnect(change.UserID)
		}
	})
}

type disconnecter interface {
	Disconnect(userID uuid.UUID)
}
