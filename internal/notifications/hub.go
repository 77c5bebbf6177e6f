package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventConnected       = "connected"
	EventCategoryUpdated = "category_updated"
	EventOverviewUpdated = "overview_updated"
	EventSessionChanged  = "session_changed"
)

const subscriberBuffer = 16

type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan Event]struct{}
}

// NewHub создает хаб для SSE-подписок.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[chan Event]struct{}),
	}
}

// Subscribe подписывает пользователя на события и возвращает канал и функцию отписки.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	userSubs, ok := h.subscribers[userID]
	if !ok {
		userSubs = make(map[chan Event]struct{})
		h.subscribers[userID] = userSubs
	}
	userSubs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			subs, exists := h.subscribers[userID]
			if !exists {
				return
			}
			if _, live := subs[ch]; !live {
				return
			}
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, userID)
			}
			close(ch)
		})
	}
}

// Publish отправляет событие всем подписчикам пользователя без блокировки.
func (h *Hub) Publish(userID uuid.UUID, event Event) {
	event.Timestamp = time.Now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Disconnect закрывает все потоки пользователя, например после выхода.
func (h *Hub) Disconnect(userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers[userID] {
		close(ch)
	}
	delete(h.subscribers, userID)
}

// Subscribers возвращает число открытых потоков пользователя.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[userID])
}
