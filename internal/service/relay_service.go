package service

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"meethub/internal/metrics"
)

// RelayService forwards opaque negotiation envelopes between two named
// participants. It never inspects envelope contents; delivery is
// at-most-once with no queueing, and an envelope for a participant that
// is no longer connected is silently dropped.
type RelayService struct {
	bcast Broadcaster
}

func NewRelayService() *RelayService {
	return &RelayService{}
}

// SetBroadcaster injects the websocket hub (avoids import cycle).
func (s *RelayService) SetBroadcaster(b Broadcaster) {
	s.bcast = b
}

// Relay delivers the envelope verbatim to the recipient if currently
// connected.
func (s *RelayService) Relay(senderID, recipientID string, envelope json.RawMessage) {
	if recipientID == "" {
		return
	}
	delivered := s.bcast.Send(recipientID, EventSignalReceived, SignalPayload{
		ParticipantID: senderID,
		Envelope:      envelope,
	})
	if delivered {
		metrics.SignalsRelayed.WithLabelValues("delivered").Inc()
		return
	}
	metrics.SignalsRelayed.WithLabelValues("dropped").Inc()
	log.Debug().Str("module", "relay").Str("from", senderID).Str("to", recipientID).
		Msg("recipient not connected, envelope dropped")
}
