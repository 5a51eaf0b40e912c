package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"meethub/internal/metrics"
	"meethub/internal/model"
	"meethub/internal/repository"
)

// TaskStopper cancels every running enrichment task for a meeting.
// Implemented by the EnrichmentService; injected after construction
// because the enrichment side also needs to read room membership.
type TaskStopper interface {
	StopMeeting(meetingID string)
}

// RoomLookup is the read-only membership view the enrichment side uses
// for room-wide broadcasts and for refusing tasks on rooms that are
// not live.
type RoomLookup interface {
	Members(meetingID string) []string
	RoomExists(meetingID string) bool
}

// RegistryService owns the authoritative in-memory mapping from
// meeting id to its set of connected participants. A room exists iff
// at least one participant is connected; destroying a room closes the
// meeting record and cancels its enrichment tasks.
//
// One RWMutex guards the room table and all membership mutation.
// Join/leave notifications are emitted inside the critical section, so
// per meeting they reach already-connected members in the order the
// mutations were applied; sends are non-blocking, so the lock never
// waits on a slow client. Everything that can block (Mongo writes,
// task cleanup) happens outside the lock, so unrelated meetings never
// wait on each other's slow collaborators.
type RegistryService struct {
	repo  repository.MeetingRepo
	bcast Broadcaster
	tasks TaskStopper

	persistTimeout time.Duration

	mu      sync.RWMutex
	rooms   map[string]*room
	current map[string]string // participantID -> meetingID
}

type room struct {
	host    string
	members map[string]struct{}
}

func NewRegistryService(repo repository.MeetingRepo, persistTimeout time.Duration) *RegistryService {
	return &RegistryService{
		repo:           repo,
		persistTimeout: persistTimeout,
		rooms:          make(map[string]*room),
		current:        make(map[string]string),
	}
}

// SetBroadcaster injects the websocket hub (avoids import cycle).
func (s *RegistryService) SetBroadcaster(b Broadcaster) {
	s.bcast = b
}

// SetTaskStopper injects the enrichment orchestrator.
func (s *RegistryService) SetTaskStopper(t TaskStopper) {
	s.tasks = t
}

// Join adds the participant to the meeting's room, creating the room
// and the meeting record when this is the first join (the first joiner
// becomes host). Existing members are told about the newcomer; the
// newcomer receives the current member list so it can signal every
// existing peer, not only the ones that happen to signal first.
func (s *RegistryService) Join(ctx context.Context, meetingID, participantID string) []string {
	now := time.Now()

	// A participant belongs to at most one room; joining a second
	// meeting leaves the first.
	s.mu.RLock()
	prev, hasPrev := s.current[participantID]
	s.mu.RUnlock()
	if hasPrev && prev != meetingID {
		s.Leave(ctx, prev, participantID)
	}

	s.mu.Lock()
	r, ok := s.rooms[meetingID]
	created := false
	if !ok {
		r = &room{host: participantID, members: make(map[string]struct{})}
		s.rooms[meetingID] = r
		created = true
		metrics.RoomsActive.Inc()
	}
	if _, already := r.members[participantID]; already {
		s.mu.Unlock()
		return s.Members(meetingID)
	}
	r.members[participantID] = struct{}{}
	s.current[participantID] = meetingID
	others := make([]string, 0, len(r.members)-1)
	for id := range r.members {
		if id != participantID {
			others = append(others, id)
		}
	}
	// Notify inside the critical section: per meeting, members must see
	// join/leave events in mutation order.
	for _, id := range others {
		s.bcast.Send(id, EventUserJoined, UserPayload{ParticipantID: participantID})
	}
	s.bcast.Send(participantID, EventRoomMembers, RoomMembersPayload{
		MeetingID:    meetingID,
		Participants: others,
	})
	s.mu.Unlock()

	log.Info().Str("module", "registry").Str("meeting_id", meetingID).
		Str("participant_id", participantID).Bool("created", created).Msg("join")

	// Best effort: the room is live regardless of whether the history
	// write lands.
	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	record := model.ParticipantRecord{UserID: participantID, JoinedAt: now}
	var err error
	if created {
		err = s.repo.Create(pctx, &model.Meeting{
			MeetingID:    meetingID,
			Host:         participantID,
			Participants: []model.ParticipantRecord{record},
			StartTime:    now,
		})
	} else {
		err = s.repo.AppendParticipant(pctx, meetingID, record)
	}
	if err != nil {
		metrics.PersistenceErrors.Inc()
		log.Error().Err(err).Str("module", "registry").Str("meeting_id", meetingID).
			Msg("failed to persist join")
	}

	members := append(others, participantID)
	return members
}

// Leave removes the participant from the room. Leaving a meeting the
// participant is not in is a no-op, which makes disconnect cleanup
// idempotent. Emptying the room destroys it: enrichment tasks are
// cancelled and the meeting record's end time is set.
func (s *RegistryService) Leave(ctx context.Context, meetingID, participantID string) {
	now := time.Now()

	s.mu.Lock()
	r, ok := s.rooms[meetingID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if _, in := r.members[participantID]; !in {
		s.mu.Unlock()
		return
	}
	delete(r.members, participantID)
	if s.current[participantID] == meetingID {
		delete(s.current, participantID)
	}
	destroyed := len(r.members) == 0
	if destroyed {
		delete(s.rooms, meetingID)
		metrics.RoomsActive.Dec()
	} else {
		// Same ordering invariant as Join: notify before releasing the
		// lock.
		for id := range r.members {
			s.bcast.Send(id, EventUserLeft, UserPayload{ParticipantID: participantID})
		}
	}
	s.mu.Unlock()

	log.Info().Str("module", "registry").Str("meeting_id", meetingID).
		Str("participant_id", participantID).Bool("destroyed", destroyed).Msg("leave")

	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	if err := s.repo.MarkParticipantLeft(pctx, meetingID, participantID, now); err != nil {
		metrics.PersistenceErrors.Inc()
		log.Error().Err(err).Str("module", "registry").Str("meeting_id", meetingID).
			Msg("failed to persist leave")
	}

	if destroyed {
		// Cancel dangling timers and provider streams before closing
		// the record.
		if s.tasks != nil {
			s.tasks.StopMeeting(meetingID)
		}
		ectx, ecancel := context.WithTimeout(ctx, s.persistTimeout)
		defer ecancel()
		if err := s.repo.SetEndTime(ectx, meetingID, now); err != nil {
			metrics.PersistenceErrors.Inc()
			log.Error().Err(err).Str("module", "registry").Str("meeting_id", meetingID).
				Msg("failed to persist end time")
		}
	}
}

// Disconnect cleans up after a dropped connection. Safe to call more
// than once for the same participant.
func (s *RegistryService) Disconnect(ctx context.Context, participantID string) {
	s.mu.RLock()
	meetingID, ok := s.current[participantID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.Leave(ctx, meetingID, participantID)
}

// Members returns the participants currently connected to the meeting,
// or nil when no room exists.
func (s *RegistryService) Members(meetingID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[meetingID]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(r.members))
	for id := range r.members {
		members = append(members, id)
	}
	return members
}

// RoomExists reports whether the meeting currently has a live room.
func (s *RegistryService) RoomExists(meetingID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[meetingID]
	return ok
}
