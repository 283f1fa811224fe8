package services

import (
	"log"
	"sync"
	"time"
)

type EventType string

const (
	EventPointsAwarded EventType = "points-awarded"
	EventLevelUp       EventType = "level-up"
	EventBadgeUnlocked EventType = "badge-unlocked"
)

// Event is a fire-and-forget notification about a member's progression.
type Event struct {
	Type   EventType      `json:"type"`
	UserID string         `json:"user_id"`
	Data   map[string]any `json:"data,omitempty"`
	At     time.Time      `json:"at"`
}

// Notifier receives progression events. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}

// Hub fans events out to per-user subscribers (the SSE stream).
// Slow subscribers lose events rather than stall the caller.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Event]struct{}
	buffer int
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[chan Event]struct{}),
		buffer: 16,
	}
}

// Subscribe returns a channel of events for userID and a cancel func that
// must be called to release it.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan Event]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *Hub) Notify(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	log.Printf("📣 [EVENTS] %s → %s %v", ev.Type, ev.UserID, ev.Data)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
			log.Printf("⚠️ [EVENTS] subscriber buffer full, dropping %s for %s", ev.Type, ev.UserID)
		}
	}
}
