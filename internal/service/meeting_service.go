package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"meethub/internal/cache"
	"meethub/internal/model"
	"meethub/internal/repository"
)

// MeetingService backs the thin request/response boundary: meeting-id
// issuance and read-only record lookup. Plain CRUD, outside the
// coordinator core.
type MeetingService struct {
	repo  repository.MeetingRepo
	cache cache.MeetingCache
}

func NewMeetingService(repo repository.MeetingRepo, c cache.MeetingCache) *MeetingService {
	return &MeetingService{
		repo:  repo,
		cache: c,
	}
}

// NewMeetingID issues a fresh globally unique meeting identifier. The
// record itself is created on first join.
func (s *MeetingService) NewMeetingID() string {
	return uuid.NewString()
}

// GetMeeting returns the meeting record, read through the cache.
// Returns nil, nil when no such meeting exists.
func (s *MeetingService) GetMeeting(ctx context.Context, meetingID string) (*model.Meeting, error) {
	if meeting, err := s.cache.Get(ctx, meetingID); err == nil {
		return meeting, nil
	}

	meeting, err := s.repo.GetByID(ctx, meetingID)
	if err != nil {
		return nil, &PersistenceError{Op: "get meeting", Err: err}
	}
	if meeting == nil {
		return nil, nil
	}

	if err := s.cache.Set(ctx, meeting); err != nil {
		log.Debug().Err(err).Str("module", "meeting").Str("meeting_id", meetingID).
			Msg("failed to cache meeting")
	}
	return meeting, nil
}
