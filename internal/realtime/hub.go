package realtime

import (
	"encoding/json"
	"sync"

	"github.com/nosh-kitchen/nosh-backend/internal/dish"
	"github.com/nosh-kitchen/nosh-backend/pkg/logger"
	"github.com/nosh-kitchen/nosh-backend/pkg/metrics"
)

// Event names pushed to dashboard sessions.
const (
	EventDishUpdated = "dishUpdated"
	EventDishDeleted = "dishDeleted"

	eventJoined = "joinedDishUpdates"
	eventLeft   = "leftDishUpdates"
)

// Envelope is the wire frame for every server-to-client message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DeletedPayload is the body of a dishDeleted event.
type DeletedPayload struct {
	Action string `json:"action"`
	DishID string `json:"dishId"`
}

// Hub tracks connected sessions and fans dish events out to those that
// joined the dish-updates room. It is constructed in main and passed to the
// dish service as its Broadcaster; there is no package-level instance.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]bool // value: session has joined the room
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[*Session]bool)}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = false
	h.mu.Unlock()
	metrics.ConnectedSessions.Inc()
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	delete(h.sessions, s)
	h.mu.Unlock()
	if ok {
		metrics.ConnectedSessions.Dec()
		s.closeSend()
	}
}

// join adds the session to the dish-updates room. Idempotent.
func (h *Hub) join(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s]; ok {
		h.sessions[s] = true
	}
	h.mu.Unlock()
}

// leave removes the session from the room. Idempotent.
func (h *Hub) leave(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s]; ok {
		h.sessions[s] = false
	}
	h.mu.Unlock()
}

// broadcast sends the event to every session currently in the room. Delivery
// is at-most-once and never blocks: a session with a full send buffer loses
// the event.
func (h *Hub) broadcast(event string, payload any) {
	msg, err := marshalEnvelope(event, payload)
	if err != nil {
		logger.Errorf("broadcast %s: marshal: %v", event, err)
		return
	}
	metrics.BroadcastEvents.WithLabelValues(event).Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s, joined := range h.sessions {
		if !joined {
			continue
		}
		select {
		case s.send <- msg:
		default:
			metrics.BroadcastDropped.Inc()
		}
	}
}

// DishUpdated implements service.Broadcaster.
func (h *Hub) DishUpdated(d *dish.Dish) {
	h.broadcast(EventDishUpdated, d)
}

// DishDeleted implements service.Broadcaster.
func (h *Hub) DishDeleted(dishID string) {
	h.broadcast(EventDishDeleted, DeletedPayload{Action: "deleted", DishID: dishID})
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
