package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrClientClosed = errors.New("client is closed")

// Subscriber is a connection that receives a profile's events
type Subscriber interface {
	ID() string
	ProfileID() int64
	// Send must not block
	Send(data []byte) error
	Close() error
}

// Hub fans profile events out to every connection that profile has open.
// A subscriber that cannot keep up is dropped rather than waited on.
type Hub struct {
	mu   sync.RWMutex
	subs map[int64]map[string]Subscriber
}

var _ EventPublisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{subs: make(map[int64]map[string]Subscriber)}
}

func (h *Hub) Register(s Subscriber) {
	h.mu.Lock()
	set, ok := h.subs[s.ProfileID()]
	if !ok {
		set = make(map[string]Subscriber)
		h.subs[s.ProfileID()] = set
	}
	set[s.ID()] = s
	h.mu.Unlock()

	log.Debug().Int64("profile_id", s.ProfileID()).Str("client_id", s.ID()).Msg("WebSocket client registered")
}

// Unregister removes s and reports whether it was registered
func (h *Hub) Unregister(s Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.remove(s)
}

func (h *Hub) remove(s Subscriber) bool {
	set := h.subs[s.ProfileID()]
	if _, ok := set[s.ID()]; !ok {
		return false
	}
	delete(set, s.ID())
	if len(set) == 0 {
		delete(h.subs, s.ProfileID())
	}
	log.Debug().Int64("profile_id", s.ProfileID()).Str("client_id", s.ID()).Msg("WebSocket client unregistered")
	return true
}

func (h *Hub) snapshot(profileID int64) []Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.subs[profileID]
	out := make([]Subscriber, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

// Publish delivers event to the profile's subscribers. Subscribers whose
// queue is full or closed are dropped.
func (h *Hub) Publish(profileID int64, event Event) {
	h.Deliver(profileID, event)
}

// Deliver is Publish with the delivery count
func (h *Hub) Deliver(profileID int64, event Event) int {
	subs := h.snapshot(profileID)
	if len(subs) == 0 {
		return 0
	}

	data, err := event.ToJSON()
	if err != nil {
		log.Error().Err(err).Int64("profile_id", profileID).Str("event_type", event.Type).Msg("Failed to encode event")
		return 0
	}

	delivered := 0
	for _, s := range subs {
		if err := s.Send(data); err != nil {
			log.Warn().Err(err).Int64("profile_id", profileID).Str("client_id", s.ID()).Msg("Dropping WebSocket client")
			if h.Unregister(s) {
				_ = s.Close()
			}
			continue
		}
		delivered++
	}

	log.Debug().Int64("profile_id", profileID).Str("event_type", event.Type).Int("delivered", delivered).Msg("Published event")
	return delivered
}

func (h *Hub) ClientCount(profileID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[profileID])
}

func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

// CloseAll disconnects every subscriber. Hijacked connections are not
// closed by the HTTP server's shutdown, so this runs alongside it.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	var all []Subscriber
	for _, set := range h.subs {
		for _, s := range set {
			all = append(all, s)
		}
	}
	h.subs = make(map[int64]map[string]Subscriber)
	h.mu.Unlock()

	for _, s := range all {
		_ = s.Close()
	}
	log.Info().Int("clients", len(all)).Msg("Closed WebSocket clients")
}
