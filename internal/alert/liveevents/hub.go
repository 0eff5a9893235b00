package liveevents

import (
	"errors"
	"strings"
	"sync"
	"time"
)

const (
	TypeAlertCreated   = "alert.created"
	TypeAlertDismissed = "alert.dismissed"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

var ErrHubUnavailable = errors.New("hub_unavailable")

// Event is what SSE subscribers receive for their own alerts.
type Event struct {
	Type       string    `json:"type"`
	AlertID    string    `json:"alertId"`
	Kind       string    `json:"kind,omitempty"`
	Message    string    `json:"message,omitempty"`
	IsActive   bool      `json:"isActive"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Hub fans events out per owner. Each stream keeps a short replay buffer and
// a slow subscriber loses events instead of blocking publishers.
type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	bufferSize       int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []Event
	subs   map[uint64]chan Event
	nextID uint64
}

type Subscription struct {
	hub   *Hub
	owner string
	id    uint64
	ch    chan Event
	once  sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(ownerID string, event Event) {
	if h == nil {
		return
	}
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return
	}
	h.mu.RLock()
	st := h.streams[owner]
	h.mu.RUnlock()
	if st == nil {
		return
	}

	st.mu.Lock()
	st.buffer = append(st.buffer, event)
	if len(st.buffer) > h.bufferSize {
		st.buffer = st.buffer[len(st.buffer)-h.bufferSize:]
	}
	subs := make([]chan Event, 0, len(st.subs))
	for _, ch := range st.subs {
		subs = append(subs, ch)
	}
	st.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a listener and returns the events buffered so far.
func (h *Hub) Subscribe(ownerID string) (*Subscription, []Event, error) {
	if h == nil {
		return nil, nil, ErrHubUnavailable
	}
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return nil, nil, errors.New("invalid_owner")
	}

	st := h.ensureStream(owner)
	st.mu.Lock()
	id := st.nextID
	st.nextID++
	ch := make(chan Event, h.subscriberBuffer)
	st.subs[id] = ch
	buffer := append([]Event(nil), st.buffer...)
	st.mu.Unlock()

	return &Subscription{hub: h, owner: owner, id: id, ch: ch}, buffer, nil
}

func (h *Hub) ensureStream(owner string) *stream {
	h.mu.RLock()
	current := h.streams[owner]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[owner]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan Event)}
		h.streams[owner] = current
	}
	return current
}

func (h *Hub) unsubscribe(owner string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.streams[owner]
	if st == nil {
		return
	}
	st.mu.Lock()
	delete(st.subs, id)
	empty := len(st.subs) == 0
	st.mu.Unlock()
	if empty {
		delete(h.streams, owner)
	}
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.owner, s.id)
	})
}
