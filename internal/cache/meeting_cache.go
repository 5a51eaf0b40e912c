package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"meethub/internal/model"
)

// MeetingCache is a read-through cache for meeting record lookups.
type MeetingCache interface {
	Set(ctx context.Context, meeting *model.Meeting) error
	Get(ctx context.Context, meetingID string) (*model.Meeting, error)
	Delete(ctx context.Context, meetingID string) error
}

type meetingCache struct {
	client *redis.Client
}

func NewMeetingCache(client *redis.Client) MeetingCache {
	return &meetingCache{
		client: client,
	}
}

func (c *meetingCache) Set(ctx context.Context, meeting *model.Meeting) error {
	data, err := json.Marshal(meeting)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "meeting:"+meeting.MeetingID, data, 30*time.Second).Err()
}

func (c *meetingCache) Get(ctx context.Context, meetingID string) (*model.Meeting, error) {
	data, err := c.client.Get(ctx, "meeting:"+meetingID).Result()
	if err != nil {
		return nil, err
	}
	var meeting model.Meeting
	err = json.Unmarshal([]byte(data), &meeting)
	return &meeting, err
}

func (c *meetingCache) Delete(ctx context.Context, meetingID string) error {
	return c.client.Del(ctx, "meeting:"+meetingID).Err()
}
