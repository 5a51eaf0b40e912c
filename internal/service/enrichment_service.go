package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"meethub/internal/metrics"
	"meethub/internal/model"
	"meethub/internal/provider"
	"meethub/internal/repository"
)

// EnrichmentService owns the per-meeting background task state
// machines: live transcription, periodic emotion sampling, and
// on-demand summarization. At most one transcription task and one
// emotion-sampling task run per meeting; stopping either releases its
// underlying resource exactly once. Provider and persistence failures
// are recoverable per task and never touch other meetings.
type EnrichmentService struct {
	repo        repository.MeetingRepo
	transcriber provider.Transcriber
	summarizer  provider.Summarizer
	emotions    provider.EmotionDetector
	rooms       RoomLookup
	bcast       Broadcaster

	samplePeriod time.Duration
	callTimeout  time.Duration

	mu       sync.Mutex
	meetings map[string]*meetingTasks
}

type meetingTasks struct {
	mu            sync.Mutex
	transcription *streamTask
	emotion       *tickerTask
}

type streamTask struct {
	stream   provider.TranscriptStream
	speaker  string
	stopOnce sync.Once
}

func (t *streamTask) stop() {
	t.stopOnce.Do(func() {
		_ = t.stream.Close()
	})
}

type tickerTask struct {
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func (t *tickerTask) stop() {
	t.stopOnce.Do(t.cancel)
}

func NewEnrichmentService(
	repo repository.MeetingRepo,
	transcriber provider.Transcriber,
	summarizer provider.Summarizer,
	emotions provider.EmotionDetector,
	samplePeriod time.Duration,
	callTimeout time.Duration,
) *EnrichmentService {
	return &EnrichmentService{
		repo:         repo,
		transcriber:  transcriber,
		summarizer:   summarizer,
		emotions:     emotions,
		samplePeriod: samplePeriod,
		callTimeout:  callTimeout,
		meetings:     make(map[string]*meetingTasks),
	}
}

// SetBroadcaster injects the websocket hub (avoids import cycle).
func (s *EnrichmentService) SetBroadcaster(b Broadcaster) {
	s.bcast = b
}

// SetRoomLookup injects the registry's membership view.
func (s *EnrichmentService) SetRoomLookup(r RoomLookup) {
	s.rooms = r
}

func (s *EnrichmentService) tasks(meetingID string) *meetingTasks {
	s.mu.Lock()
	defer s.mu.Unlock()
	mt, ok := s.meetings[meetingID]
	if !ok {
		mt = &meetingTasks{}
		s.meetings[meetingID] = mt
	}
	return mt
}

// lookup never allocates; read paths must not grow the task table.
func (s *EnrichmentService) lookup(meetingID string) *meetingTasks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meetings[meetingID]
}

func (s *EnrichmentService) broadcastRoom(meetingID, event string, payload interface{}) {
	for _, id := range s.rooms.Members(meetingID) {
		s.bcast.Send(id, event, payload)
	}
}

// StartTranscription opens one speech-to-text stream for the meeting.
// The room must be live and the meeting record must exist. Starting
// while already running is a no-op: a second stream is never opened.
func (s *EnrichmentService) StartTranscription(ctx context.Context, meetingID, requesterID string) error {
	if !s.rooms.RoomExists(meetingID) {
		return &NotFoundError{MeetingID: meetingID}
	}

	gctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	meeting, err := s.repo.GetByID(gctx, meetingID)
	cancel()
	if err != nil {
		return &PersistenceError{Op: "get meeting", Err: err}
	}
	if meeting == nil {
		return &NotFoundError{MeetingID: meetingID}
	}

	mt := s.tasks(meetingID)
	mt.mu.Lock()
	if mt.transcription != nil {
		mt.mu.Unlock()
		log.Info().Str("module", "enrichment").Str("meeting_id", meetingID).
			Msg("transcription already running")
		return nil
	}

	stream, err := s.transcriber.Start(ctx, meetingID)
	if err != nil {
		mt.mu.Unlock()
		metrics.ProviderErrors.WithLabelValues("transcription").Inc()
		return &ProviderError{Provider: "transcription", Err: err}
	}
	task := &streamTask{stream: stream, speaker: requesterID}
	mt.transcription = task
	mt.mu.Unlock()

	metrics.TasksActive.WithLabelValues("transcription").Inc()
	go s.consumeTranscripts(meetingID, task)
	return nil
}

func (s *EnrichmentService) consumeTranscripts(meetingID string, task *streamTask) {
	defer func() {
		if mt := s.lookup(meetingID); mt != nil {
			mt.mu.Lock()
			if mt.transcription == task {
				mt.transcription = nil
			}
			mt.mu.Unlock()
		}
		metrics.TasksActive.WithLabelValues("transcription").Dec()
	}()

	for frag := range task.stream.Fragments() {
		entry := model.TranscriptEntry{
			Speaker:   task.speaker,
			Text:      frag.Text,
			Timestamp: time.Now(),
		}

		pctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
		err := s.repo.AppendTranscript(pctx, meetingID, entry)
		cancel()
		if err != nil {
			metrics.PersistenceErrors.Inc()
			log.Error().Err(err).Str("module", "enrichment").Str("meeting_id", meetingID).
				Msg("failed to persist transcript entry")
		}

		s.broadcastRoom(meetingID, EventTranscription, TranscriptionPayload{
			Speaker:   entry.Speaker,
			Text:      entry.Text,
			Timestamp: entry.Timestamp,
		})
	}
}

// StopTranscription releases the stream. Stopping an idle meeting is a
// no-op.
func (s *EnrichmentService) StopTranscription(meetingID string) {
	mt := s.lookup(meetingID)
	if mt == nil {
		return
	}
	mt.mu.Lock()
	task := mt.transcription
	mt.mu.Unlock()
	if task == nil {
		return
	}
	task.stop()
	log.Info().Str("module", "enrichment").Str("meeting_id", meetingID).Msg("transcription stopped")
}

// FeedAudio forwards an audio chunk to the meeting's open stream.
// Chunks arriving with no stream open are dropped.
func (s *EnrichmentService) FeedAudio(ctx context.Context, meetingID string, audio []byte) error {
	mt := s.lookup(meetingID)
	if mt == nil {
		return nil
	}
	mt.mu.Lock()
	task := mt.transcription
	mt.mu.Unlock()
	if task == nil {
		return nil
	}

	fctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if err := task.stream.Feed(fctx, audio); err != nil {
		metrics.ProviderErrors.WithLabelValues("transcription").Inc()
		return &ProviderError{Provider: "transcription", Err: err}
	}
	return nil
}

// StartEmotionSampling begins the periodic frame-request timer for the
// meeting. The room must be live; starting while already running is a
// no-op. Without the live-room check a timer started for a dead room
// would tick until an explicit stop.
func (s *EnrichmentService) StartEmotionSampling(meetingID string) {
	if !s.rooms.RoomExists(meetingID) {
		log.Warn().Str("module", "enrichment").Str("meeting_id", meetingID).
			Msg("emotion sampling refused, no live room")
		return
	}

	mt := s.tasks(meetingID)
	mt.mu.Lock()
	if mt.emotion != nil {
		mt.mu.Unlock()
		log.Info().Str("module", "enrichment").Str("meeting_id", meetingID).
			Msg("emotion sampling already running")
		return
	}
	tctx, cancel := context.WithCancel(context.Background())
	task := &tickerTask{cancel: cancel}
	mt.emotion = task
	mt.mu.Unlock()

	metrics.TasksActive.WithLabelValues("emotion").Inc()
	go s.sampleLoop(tctx, meetingID)
}

func (s *EnrichmentService) sampleLoop(ctx context.Context, meetingID string) {
	ticker := time.NewTicker(s.samplePeriod)
	defer ticker.Stop()
	defer metrics.TasksActive.WithLabelValues("emotion").Dec()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcastRoom(meetingID, EventRequestFrame, struct{}{})
		}
	}
}

// StopEmotionSampling cancels the timer. The cancellation is
// exactly-once even when racing a tick or a duplicate stop.
func (s *EnrichmentService) StopEmotionSampling(meetingID string) {
	mt := s.lookup(meetingID)
	if mt == nil {
		return
	}
	mt.mu.Lock()
	task := mt.emotion
	mt.emotion = nil
	mt.mu.Unlock()
	if task == nil {
		return
	}
	task.stop()
	log.Info().Str("module", "enrichment").Str("meeting_id", meetingID).Msg("emotion sampling stopped")
}

// HandleFrame scores one video frame, records the dominant emotion and
// broadcasts it to the room.
func (s *EnrichmentService) HandleFrame(ctx context.Context, meetingID, participantID string, image []byte) error {
	dctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	scores, err := s.emotions.Detect(dctx, image)
	metrics.ProviderDuration.WithLabelValues("emotion").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("emotion").Inc()
		return &ProviderError{Provider: "emotion", Err: err}
	}
	if len(scores) == 0 {
		return nil // no face in frame
	}

	sample := model.EmotionSample{
		UserID:    participantID,
		Emotion:   dominantEmotion(scores),
		Timestamp: time.Now(),
	}

	pctx, pcancel := context.WithTimeout(ctx, s.callTimeout)
	defer pcancel()
	if err := s.repo.AppendEmotion(pctx, meetingID, sample); err != nil {
		metrics.PersistenceErrors.Inc()
		log.Error().Err(err).Str("module", "enrichment").Str("meeting_id", meetingID).
			Msg("failed to persist emotion sample")
	}

	s.broadcastRoom(meetingID, EventEmotionDetected, EmotionPayload{
		ParticipantID: sample.UserID,
		Emotion:       sample.Emotion,
		Timestamp:     sample.Timestamp,
	})
	return nil
}

// dominantEmotion picks the strictly highest score; equal scores keep
// the first-encountered label in provider response order.
func dominantEmotion(scores []provider.EmotionScore) string {
	best := scores[0]
	for _, sc := range scores[1:] {
		if sc.Score > best.Score {
			best = sc
		}
	}
	return best.Label
}

// GenerateSummary renders the full transcript, asks the summarizer for
// prose, extracts action items and replaces the meeting's summary.
func (s *EnrichmentService) GenerateSummary(ctx context.Context, meetingID string) error {
	gctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	meeting, err := s.repo.GetByID(gctx, meetingID)
	cancel()
	if err != nil {
		return &PersistenceError{Op: "get meeting", Err: err}
	}
	if meeting == nil {
		return &NotFoundError{MeetingID: meetingID}
	}

	lines := make([]string, 0, len(meeting.Transcript))
	for _, t := range meeting.Transcript {
		lines = append(lines, t.Speaker+": "+t.Text)
	}

	sctx, scancel := context.WithTimeout(ctx, s.callTimeout)
	defer scancel()
	start := time.Now()
	text, err := s.summarizer.Summarize(sctx, strings.Join(lines, "\n"))
	metrics.ProviderDuration.WithLabelValues("summary").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("summary").Inc()
		return &ProviderError{Provider: "summary", Err: err}
	}

	summary := model.Summary{
		Text:        text,
		ActionItems: extractActionItems(text),
		GeneratedAt: time.Now(),
	}

	pctx, pcancel := context.WithTimeout(ctx, s.callTimeout)
	defer pcancel()
	if err := s.repo.SetSummary(pctx, meetingID, summary); err != nil {
		return &PersistenceError{Op: "set summary", Err: err}
	}

	s.broadcastRoom(meetingID, EventSummaryGenerated, SummaryPayload{
		Text:        summary.Text,
		ActionItems: summary.ActionItems,
	})
	return nil
}

// extractActionItems pulls likely action items out of summary prose,
// line by line, in original order: lines mentioning "action item",
// "todo" or "task" (case-insensitive), or starting with a checkbox
// marker.
func extractActionItems(summary string) []string {
	var items []string
	for _, line := range strings.Split(summary, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "action item") ||
			strings.Contains(lower, "todo") ||
			strings.Contains(lower, "task") ||
			strings.HasPrefix(line, "- [ ]") ||
			strings.HasPrefix(line, "- [x]") {
			items = append(items, strings.TrimSpace(line))
		}
	}
	return items
}

// StopMeeting cancels every running task for the meeting. Called by the
// registry when the room is destroyed; tasks never outlive their room.
func (s *EnrichmentService) StopMeeting(meetingID string) {
	s.mu.Lock()
	mt, ok := s.meetings[meetingID]
	if ok {
		delete(s.meetings, meetingID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	mt.mu.Lock()
	transcription := mt.transcription
	emotion := mt.emotion
	mt.transcription = nil
	mt.emotion = nil
	mt.mu.Unlock()

	if transcription != nil {
		transcription.stop()
	}
	if emotion != nil {
		emotion.stop()
	}
	log.Info().Str("module", "enrichment").Str("meeting_id", meetingID).Msg("meeting tasks stopped")
}
