package ws

import "encoding/json"

// Client→core message types.
const (
	MsgJoinMeeting        = "join-meeting"
	MsgLeaveMeeting       = "leave-meeting"
	MsgReturnSignal       = "return-signal"
	MsgStartTranscription = "start-transcription"
	MsgStopTranscription  = "stop-transcription"
	MsgAudioChunk         = "audio-chunk"
	MsgStartEmotion       = "start-emotion-detection"
	MsgStopEmotion        = "stop-emotion-detection"
	MsgFrameData          = "frame-data"
	MsgGenerateSummary    = "generate-summary"
)

// Message is the WebSocket envelope format, both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound payloads.

type meetingPayload struct {
	MeetingID string `json:"meetingId"`
}

type returnSignalPayload struct {
	Envelope json.RawMessage `json:"envelope"`
	To       string          `json:"to"`
}

type audioChunkPayload struct {
	MeetingID string `json:"meetingId"`
	Audio     string `json:"audio"` // base64
}

type frameDataPayload struct {
	MeetingID string `json:"meetingId"`
	ImageData string `json:"imageData"` // base64, optionally a data URL
}

type connectedPayload struct {
	ParticipantID string `json:"participantId"`
}
