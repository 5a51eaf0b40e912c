package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"meethub/internal/model"
	"meethub/internal/provider"
)

// fakeRepo is an in-memory MeetingRepo. failAll makes every call error
// to exercise the best-effort persistence paths; slowAppendUser delays
// AppendParticipant for one participant to simulate a stalled write.
type fakeRepo struct {
	mu       sync.Mutex
	meetings map[string]*model.Meeting
	failAll  bool

	slowAppendUser string
	slowAppendDur  time.Duration
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{meetings: make(map[string]*model.Meeting)}
}

var errRepoDown = errors.New("repo down")

func (r *fakeRepo) Create(ctx context.Context, meeting *model.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errRepoDown
	}
	copied := *meeting
	r.meetings[meeting.MeetingID] = &copied
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, meetingID string) (*model.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errRepoDown
	}
	m, ok := r.meetings[meetingID]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (r *fakeRepo) AppendParticipant(ctx context.Context, meetingID string, p model.ParticipantRecord) error {
	if p.UserID == r.slowAppendUser {
		time.Sleep(r.slowAppendDur)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errRepoDown
	}
	if m, ok := r.meetings[meetingID]; ok {
		m.Participants = append(m.Participants, p)
	}
	return nil
}

func (r *fakeRepo) MarkParticipantLeft(ctx context.Context, meetingID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errRepoDown
	}
	if m, ok := r.meetings[meetingID]; ok {
		for i := range m.Participants {
			if m.Participants[i].UserID == userID && m.Participants[i].LeftAt == nil {
				t := at
				m.Participants[i].LeftAt = &t
				break
			}
		}
	}
	return nil
}

func (r *fakeRepo) SetEndTime(ctx context.Context, meetingID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errRepoDown
	}
	if m, ok := r.meetings[meetingID]; ok {
		t := at
		m.EndTime = &t
	}
	return nil
}

func (r *fakeRepo) AppendTranscript(ctx context.Context, meetingID string, entry model.TranscriptEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errRepoDown
	}
	if m, ok := r.meetings[meetingID]; ok {
		m.Transcript = append(m.Transcript, entry)
	}
	return nil
}

func (r *fakeRepo) AppendEmotion(ctx context.Context, meetingID string, sample model.EmotionSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errRepoDown
	}
	if m, ok := r.meetings[meetingID]; ok {
		m.Emotions = append(m.Emotions, sample)
	}
	return nil
}

func (r *fakeRepo) SetSummary(ctx context.Context, meetingID string, summary model.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errRepoDown
	}
	if m, ok := r.meetings[meetingID]; ok {
		s := summary
		m.Summary = &s
	}
	return nil
}

func (r *fakeRepo) meeting(meetingID string) *model.Meeting {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[meetingID]
	if !ok {
		return nil
	}
	copied := *m
	return &copied
}

type sentEvent struct {
	To      string
	Event   string
	Payload interface{}
}

// fakeBroadcaster records every Send; delivery succeeds only for
// participants marked connected.
type fakeBroadcaster struct {
	mu        sync.Mutex
	connected map[string]bool
	events    []sentEvent
}

func newFakeBroadcaster(participants ...string) *fakeBroadcaster {
	b := &fakeBroadcaster{connected: make(map[string]bool)}
	for _, p := range participants {
		b.connected[p] = true
	}
	return b
}

func (b *fakeBroadcaster) Send(participantID, event string, payload interface{}) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected[participantID] {
		return false
	}
	b.events = append(b.events, sentEvent{To: participantID, Event: event, Payload: payload})
	return true
}

func (b *fakeBroadcaster) connect(participantID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected[participantID] = true
}

func (b *fakeBroadcaster) disconnect(participantID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.connected, participantID)
}

func (b *fakeBroadcaster) eventsFor(participantID, event string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentEvent
	for _, e := range b.events {
		if e.To == participantID && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (b *fakeBroadcaster) eventsTo(participantID string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentEvent
	for _, e := range b.events {
		if e.To == participantID {
			out = append(out, e)
		}
	}
	return out
}

func (b *fakeBroadcaster) countEvent(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// fakeStopper records StopMeeting calls.
type fakeStopper struct {
	mu      sync.Mutex
	stopped []string
}

func (f *fakeStopper) StopMeeting(meetingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, meetingID)
}

func (f *fakeStopper) stoppedMeetings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stopped...)
}

// staticRooms is a fixed membership view for enrichment tests.
type staticRooms struct {
	members map[string][]string
}

func (s *staticRooms) Members(meetingID string) []string {
	return s.members[meetingID]
}

func (s *staticRooms) RoomExists(meetingID string) bool {
	_, ok := s.members[meetingID]
	return ok
}

// fakeTranscriber hands out fakeStreams and counts opens.
type fakeTranscriber struct {
	mu      sync.Mutex
	started int
	failure error
	streams []*fakeStream
}

func (t *fakeTranscriber) Start(ctx context.Context, meetingID string) (provider.TranscriptStream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failure != nil {
		return nil, t.failure
	}
	t.started++
	s := newFakeStream()
	t.streams = append(t.streams, s)
	return s, nil
}

func (t *fakeTranscriber) startCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

type fakeStream struct {
	mu     sync.Mutex
	closed bool
	frags  chan provider.Fragment
	fed    [][]byte
}

func newFakeStream() *fakeStream {
	return &fakeStream{frags: make(chan provider.Fragment, 16)}
}

func (s *fakeStream) Feed(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("stream closed")
	}
	s.fed = append(s.fed, audio)
	return nil
}

func (s *fakeStream) Fragments() <-chan provider.Fragment {
	return s.frags
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.frags)
	return nil
}

func (s *fakeStream) emit(text string) {
	s.frags <- provider.Fragment{Text: text}
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeSummarizer struct {
	response string
	failure  error
	calls    int
	mu       sync.Mutex
}

func (f *fakeSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failure != nil {
		return "", f.failure
	}
	return f.response, nil
}

type fakeDetector struct {
	scores  []provider.EmotionScore
	failure error
}

func (f *fakeDetector) Detect(ctx context.Context, image []byte) ([]provider.EmotionScore, error) {
	if f.failure != nil {
		return nil, f.failure
	}
	return f.scores, nil
}
