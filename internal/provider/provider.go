// Package provider holds the thin clients for the external AI
// capabilities: streaming speech-to-text, request/response
// summarization, and request/response facial-emotion inference. The
// rest of the system depends only on the interfaces here, never on a
// vendor's wire shape.
package provider

import "context"

// Fragment is one piece of transcribed speech emitted by a stream.
type Fragment struct {
	Text string
}

// TranscriptStream is an open speech-to-text session. Feed pushes raw
// audio; recognized fragments arrive on Fragments. Close releases the
// session and closes the fragment channel; it is safe to call more
// than once.
type TranscriptStream interface {
	Feed(ctx context.Context, audio []byte) error
	Fragments() <-chan Fragment
	Close() error
}

// Transcriber opens streaming speech-to-text sessions.
type Transcriber interface {
	Start(ctx context.Context, meetingID string) (TranscriptStream, error)
}

// Summarizer turns a rendered transcript into free-text summary prose.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// EmotionScore is one labeled score from a facial-emotion inference
// call. Scores keep the provider's response order so that tie-breaking
// on equal scores is deterministic.
type EmotionScore struct {
	Label string
	Score float64
}

// EmotionDetector scores a single video frame. A nil, nil return means
// no face was found in the frame.
type EmotionDetector interface {
	Detect(ctx context.Context, image []byte) ([]EmotionScore, error)
}
