// Package event carries relay activity to in-process subscribers, such as
// the dashboard websocket feed.
package event

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TypeCustomerMessage = "customer_message"
	TypeOperatorReply   = "operator_reply"
)

// Event is one unit of relay activity.
type Event struct {
	Type         string    `json:"type"`
	PageID       string    `json:"page_id"`
	PageName     string    `json:"page_name,omitempty"`
	CustomerName string    `json:"customer_name,omitempty"`
	Text         string    `json:"text"`
	Language     string    `json:"language,omitempty"`
	At           time.Time `json:"at"`
}

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// that falls behind loses events rather than stalling the relay path.
type Hub struct {
	log  *slog.Logger
	mu   sync.RWMutex
	subs map[string]chan Event
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:  log.With(slog.String("service", "event")),
		subs: make(map[string]chan Event),
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, 16)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber that has buffer room.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.log.Warn("subscriber buffer full, dropping event", slog.String("subscriber", id))
		}
	}
}
