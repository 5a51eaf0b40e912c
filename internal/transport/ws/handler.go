package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"meethub/internal/metrics"
	"meethub/internal/service"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler owns the per-client websocket lifecycle: it issues the
// participant identity, pumps frames, dispatches inbound messages to
// the registry, relay and orchestrator, and triggers cleanup when the
// connection drops.
type Handler struct {
	hub      *Hub
	registry *service.RegistryService
	relay    *service.RelayService
	enrich   *service.EnrichmentService

	readLimit  int64
	pingPeriod time.Duration
	pongWait   time.Duration
}

func NewHandler(
	hub *Hub,
	registry *service.RegistryService,
	relay *service.RelayService,
	enrich *service.EnrichmentService,
	readLimit int64,
	pingPeriod time.Duration,
) *Handler {
	return &Handler{
		hub:        hub,
		registry:   registry,
		relay:      relay,
		enrich:     enrich,
		readLimit:  readLimit,
		pingPeriod: pingPeriod,
		pongWait:   pingPeriod * 10 / 9,
	}
}

// ServeWS handles GET /ws. Every connection gets a fresh participant
// identity; a reconnect is a new participant.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("websocket upgrade failed")
		return
	}

	participantID := uuid.NewString()
	conn := &Connection{
		ParticipantID: participantID,
		Send:          make(chan []byte, sendBufferSize),
	}
	h.hub.Register(conn)

	// Tell the client who it is; all signaling is addressed by
	// participant id.
	h.hub.Send(participantID, service.EventConnected, connectedPayload{ParticipantID: participantID})

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		// Cleanup must hold even when both a network loss and an
		// explicit leave fire; Disconnect is idempotent.
		h.registry.Disconnect(context.Background(), conn.ParticipantID)
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(h.readLimit)
	wsConn.SetReadDeadline(time.Now().Add(h.pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(h.pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("module", "ws").
					Str("participant_id", conn.ParticipantID).Msg("websocket read error")
			}
			break
		}
		h.dispatch(conn.ParticipantID, data)
	}
}

// dispatch routes one inbound frame. Malformed frames get an error
// event back; unrecognized types are ignored, never fatal.
func (h *Handler) dispatch(participantID string, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug().Err(err).Str("module", "ws").Str("participant_id", participantID).
			Msg("malformed message")
		h.hub.Send(participantID, service.EventError, service.ErrorPayload{Message: "malformed message"})
		return
	}
	metrics.MessagesTotal.WithLabelValues(msg.Type).Inc()
	ctx := context.Background()

	switch msg.Type {
	case MsgJoinMeeting:
		var p meetingPayload
		if !h.parsePayload(participantID, msg.Payload, &p) {
			return
		}
		h.registry.Join(ctx, p.MeetingID, participantID)

	case MsgLeaveMeeting:
		var p meetingPayload
		if !h.parsePayload(participantID, msg.Payload, &p) {
			return
		}
		h.registry.Leave(ctx, p.MeetingID, participantID)

	case MsgReturnSignal:
		var p returnSignalPayload
		if !h.parsePayload(participantID, msg.Payload, &p) {
			return
		}
		h.relay.Relay(participantID, p.To, p.Envelope)

	case MsgStartTranscription:
		var p meetingPayload
		if !h.parsePayload(participantID, msg.Payload, &p) {
			return
		}
		if err := h.enrich.StartTranscription(ctx, p.MeetingID, participantID); err != nil {
			h.sendTaskError(participantID, service.EventTranscriptionError, err)
		}

	case MsgStopTranscription:
		var p meetingPayload
		if !h.parsePayload(participantID, msg.Payload, &p) {
			return
		}
		h.enrich.StopTranscription(p.MeetingID)

	case MsgAudioChunk:
		var p audioChunkPayload
		if !h.parsePayload(participantID, msg.Payload, &p) {
			return
		}
		audio, err := base64.StdEncoding.DecodeString(p.Audio)
		if err != nil {
			h.hub.Send(participantID, service.EventError, service.ErrorPayload{Message: "bad audio encoding"})
			return
		}
		if err := h.enrich.FeedAudio(ctx, p.MeetingID, audio); err != nil {
			h.sendTaskError(participantID, service.EventTranscriptionError, err)
		}

	case MsgStartEmotion:
		var p meetingPayload
		if !h.parsePayload(participantID, msg.Payload, &p) {
			return
		}
		h.enrich.StartEmotionSampling(p.MeetingID)

	case MsgStopEmotion:
		var p meetingPayload
		if !h.parsePayload(participantID, msg.Payload, &p) {
			return
		}
		h.enrich.StopEmotionSampling(p.MeetingID)

	case MsgFrameData:
		var p frameDataPayload
		if !h.parsePayload(participantID, msg.Payload, &p) {
			return
		}
		image, err := decodeImageData(p.ImageData)
		if err != nil {
			h.hub.Send(participantID, service.EventError, service.ErrorPayload{Message: "bad image encoding"})
			return
		}
		// Provider calls are bounded but slow; keep the read pump free.
		go func() {
			if err := h.enrich.HandleFrame(context.Background(), p.MeetingID, participantID, image); err != nil {
				h.sendTaskError(participantID, service.EventEmotionError, err)
			}
		}()

	case MsgGenerateSummary:
		var p meetingPayload
		if !h.parsePayload(participantID, msg.Payload, &p) {
			return
		}
		go func() {
			if err := h.enrich.GenerateSummary(context.Background(), p.MeetingID); err != nil {
				h.sendTaskError(participantID, service.EventSummaryError, err)
			}
		}()

	default:
		log.Debug().Str("module", "ws").Str("type", msg.Type).Msg("unrecognized message type ignored")
	}
}

func (h *Handler) parsePayload(participantID string, data json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Debug().Err(err).Str("module", "ws").Str("participant_id", participantID).
			Msg("bad payload")
		h.hub.Send(participantID, service.EventError, service.ErrorPayload{Message: "bad payload"})
		return false
	}
	return true
}

func (h *Handler) sendTaskError(participantID, event string, err error) {
	log.Error().Err(err).Str("module", "ws").Str("participant_id", participantID).
		Str("event", event).Msg("enrichment task error")
	h.hub.Send(participantID, event, service.ErrorPayload{Message: err.Error()})
}

// decodeImageData accepts plain base64 or a data URL.
func decodeImageData(s string) ([]byte, error) {
	if i := strings.IndexByte(s, ','); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
