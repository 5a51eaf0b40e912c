package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"meethub/internal/model"
)

// MeetingRepo persists meeting records. All writes are best-effort
// appends/updates keyed by meetingId; callers must not let a failure
// here block in-memory room state.
type MeetingRepo interface {
	Create(ctx context.Context, meeting *model.Meeting) error
	GetByID(ctx context.Context, meetingID string) (*model.Meeting, error)
	AppendParticipant(ctx context.Context, meetingID string, p model.ParticipantRecord) error
	MarkParticipantLeft(ctx context.Context, meetingID, userID string, at time.Time) error
	SetEndTime(ctx context.Context, meetingID string, at time.Time) error
	AppendTranscript(ctx context.Context, meetingID string, entry model.TranscriptEntry) error
	AppendEmotion(ctx context.Context, meetingID string, sample model.EmotionSample) error
	SetSummary(ctx context.Context, meetingID string, summary model.Summary) error
}

type meetingRepo struct {
	collection *mongo.Collection
}

func NewMeetingRepo(db *mongo.Database) MeetingRepo {
	return &meetingRepo{
		collection: db.Collection("meetings"),
	}
}

func (r *meetingRepo) Create(ctx context.Context, meeting *model.Meeting) error {
	_, err := r.collection.InsertOne(ctx, meeting)
	return err
}

func (r *meetingRepo) GetByID(ctx context.Context, meetingID string) (*model.Meeting, error) {
	var meeting model.Meeting
	err := r.collection.FindOne(ctx, bson.M{"meetingId": meetingID}).Decode(&meeting)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // Meeting not found
		}
		return nil, err
	}
	return &meeting, nil
}

func (r *meetingRepo) AppendParticipant(ctx context.Context, meetingID string, p model.ParticipantRecord) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"meetingId": meetingID},
		bson.M{"$push": bson.M{"participants": p}},
	)
	return err
}

// MarkParticipantLeft closes the open history entry for userID: the one
// with a matching userId and no leftAt yet.
func (r *meetingRepo) MarkParticipantLeft(ctx context.Context, meetingID, userID string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"meetingId": meetingID},
		bson.M{"$set": bson.M{"participants.$[elem].leftAt": at}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{
				bson.M{"elem.userId": userID, "elem.leftAt": bson.M{"$exists": false}},
			},
		}),
	)
	return err
}

func (r *meetingRepo) SetEndTime(ctx context.Context, meetingID string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"meetingId": meetingID},
		bson.M{"$set": bson.M{"endTime": at}},
	)
	return err
}

func (r *meetingRepo) AppendTranscript(ctx context.Context, meetingID string, entry model.TranscriptEntry) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"meetingId": meetingID},
		bson.M{"$push": bson.M{"transcription": entry}},
	)
	return err
}

func (r *meetingRepo) AppendEmotion(ctx context.Context, meetingID string, sample model.EmotionSample) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"meetingId": meetingID},
		bson.M{"$push": bson.M{"emotions": sample}},
	)
	return err
}

// SetSummary replaces any prior summary wholesale.
func (r *meetingRepo) SetSummary(ctx context.Context, meetingID string, summary model.Summary) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"meetingId": meetingID},
		bson.M{"$set": bson.M{"summary": summary}},
	)
	return err
}
