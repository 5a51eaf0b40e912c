package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"meethub/internal/metrics"
)

// Hub tracks the single live connection per participant and delivers
// outbound events. It implements service.Broadcaster; room membership
// lives in the registry, the hub only knows who is connected.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Connection // participantID -> conn
}

// Connection is one participant's websocket send side.
type Connection struct {
	ParticipantID string
	Send          chan []byte
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*Connection),
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.conns[conn.ParticipantID]; ok && existing != conn {
		close(existing.Send)
	} else if !ok {
		metrics.ConnectionsActive.Inc()
	}
	h.conns[conn.ParticipantID] = conn
	log.Info().Str("module", "ws").Str("participant_id", conn.ParticipantID).Msg("participant connected")
}

// Unregister removes a connection. Safe to call after the participant
// was already replaced or removed.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.conns[conn.ParticipantID]; ok && existing == conn {
		delete(h.conns, conn.ParticipantID)
		close(conn.Send)
		metrics.ConnectionsActive.Dec()
		log.Info().Str("module", "ws").Str("participant_id", conn.ParticipantID).Msg("participant disconnected")
	}
}

// Connected reports whether the participant currently has a live
// connection.
func (h *Hub) Connected(participantID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[participantID]
	return ok
}

// Send delivers one event to a participant (implements
// service.Broadcaster). Returns false when the participant is not
// connected or the send buffer is full; the message is dropped either
// way.
func (h *Hub) Send(participantID, event string, payload interface{}) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Str("event", event).Msg("failed to marshal payload")
		return false
	}
	frame, err := json.Marshal(&Message{Type: event, Payload: data})
	if err != nil {
		return false
	}

	// Hold the read lock across the send: Unregister closes the channel
	// under the write lock, so a send can never race the close.
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.conns[participantID]
	if !ok {
		return false
	}

	select {
	case conn.Send <- frame:
		return true
	default:
		// Slow consumer; drop rather than block the sender.
		log.Debug().Str("module", "ws").Str("participant_id", participantID).
			Str("event", event).Msg("send buffer full, message dropped")
		return false
	}
}
