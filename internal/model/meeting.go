package model

import "time"

// Meeting is the durable record of one meeting's entire lifetime.
// One document per meeting; created on first join, closed (EndTime set)
// when the last participant leaves, never deleted.
type Meeting struct {
	MeetingID    string              `json:"meetingId" bson:"meetingId"`
	Host         string              `json:"host" bson:"host"`
	Participants []ParticipantRecord `json:"participants" bson:"participants"`
	StartTime    time.Time           `json:"startTime" bson:"startTime"`
	EndTime      *time.Time          `json:"endTime,omitempty" bson:"endTime,omitempty"`
	Transcript   []TranscriptEntry   `json:"transcription" bson:"transcription"`
	Summary      *Summary            `json:"summary,omitempty" bson:"summary,omitempty"`
	Emotions     []EmotionSample     `json:"emotions" bson:"emotions"`
}

// ParticipantRecord is one membership-history entry. LeftAt stays unset
// while the participant is connected.
type ParticipantRecord struct {
	UserID   string     `json:"userId" bson:"userId"`
	JoinedAt time.Time  `json:"joinedAt" bson:"joinedAt"`
	LeftAt   *time.Time `json:"leftAt,omitempty" bson:"leftAt,omitempty"`
}

// TranscriptEntry is one transcribed fragment attributed to a speaker.
type TranscriptEntry struct {
	Speaker   string    `json:"speaker" bson:"speaker"`
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// EmotionSample is one dominant-emotion reading for a participant.
type EmotionSample struct {
	UserID    string    `json:"userId" bson:"userId"`
	Emotion   string    `json:"emotion" bson:"emotion"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Summary is the generated meeting summary. Regenerating replaces the
// whole value.
type Summary struct {
	Text        string    `json:"text" bson:"text"`
	ActionItems []string  `json:"actionItems" bson:"actionItems"`
	GeneratedAt time.Time `json:"generatedAt" bson:"generatedAt"`
}
