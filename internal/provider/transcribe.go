package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrTranscriberUnconfigured is returned by Start when no speech-to-text
// backend URL is set.
var ErrTranscriberUnconfigured = errors.New("transcription backend not configured")

// WhisperTranscriber talks to a whisper-compatible HTTP endpoint. Each
// fed audio chunk is posted as a multipart file; the recognized text
// comes back per chunk and is surfaced as a stream fragment.
type WhisperTranscriber struct {
	url    string
	client *http.Client
}

func NewWhisperTranscriber(url string, timeout time.Duration) *WhisperTranscriber {
	return &WhisperTranscriber{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (t *WhisperTranscriber) Start(ctx context.Context, meetingID string) (TranscriptStream, error) {
	if t.url == "" {
		return nil, ErrTranscriberUnconfigured
	}
	log.Info().Str("module", "provider").Str("meeting_id", meetingID).Msg("transcription stream opened")
	return &whisperStream{
		url:    t.url,
		client: t.client,
		frags:  make(chan Fragment, 16),
	}, nil
}

type whisperStream struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	closed bool
	frags  chan Fragment
}

func (s *whisperStream) Fragments() <-chan Fragment {
	return s.frags
}

func (s *whisperStream) Feed(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("stream closed")
	}
	s.mu.Unlock()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return err
	}
	if _, err := part.Write(audio); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.url+"/inference", body)
	if err != nil {
		return fmt.Errorf("create transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("transcribe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("transcribe status %d: %s", resp.StatusCode, errBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode transcribe response: %w", err)
	}
	if result.Text == "" {
		return nil
	}

	// Deliver under the lock so a concurrent Close cannot close the
	// channel out from under the send.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.frags <- Fragment{Text: result.Text}:
	default:
		// Consumer is behind; drop rather than stall the feeder.
	}
	return nil
}

func (s *whisperStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.frags)
	return nil
}
