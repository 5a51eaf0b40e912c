package service

import (
	"encoding/json"
	"time"
)

// Broadcaster delivers events to connected participants. Implemented
// by the websocket hub (interface lives here to avoid an import cycle).
type Broadcaster interface {
	// Send delivers one event to a single participant. Returns false
	// when the participant is not connected or the message was dropped;
	// delivery is at-most-once either way.
	Send(participantID, event string, payload interface{}) bool
}

// Outbound event types.
const (
	EventConnected        = "connected"
	EventUserJoined       = "user-joined"
	EventUserLeft         = "user-left"
	EventRoomMembers      = "room-members"
	EventSignalReceived   = "signal-received"
	EventTranscription    = "transcription"
	EventRequestFrame     = "request-frame"
	EventEmotionDetected  = "emotion-detected"
	EventSummaryGenerated = "summary-generated"

	EventError              = "error"
	EventTranscriptionError = "transcription-error"
	EventEmotionError       = "emotion-error"
	EventSummaryError       = "summary-error"
)

// Outbound payloads.

type UserPayload struct {
	ParticipantID string `json:"participantId"`
}

type RoomMembersPayload struct {
	MeetingID    string   `json:"meetingId"`
	Participants []string `json:"participants"`
}

type SignalPayload struct {
	ParticipantID string          `json:"participantId"`
	Envelope      json.RawMessage `json:"envelope"`
}

type TranscriptionPayload struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type EmotionPayload struct {
	ParticipantID string    `json:"participantId"`
	Emotion       string    `json:"emotion"`
	Timestamp     time.Time `json:"timestamp"`
}

type SummaryPayload struct {
	Text        string   `json:"text"`
	ActionItems []string `json:"actionItems"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
