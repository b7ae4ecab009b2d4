package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vibe-tracker/tracker-backend/internal/database"
)

type reminderDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	UserID     string             `bson:"user_id"`
	ProjectID  primitive.ObjectID `bson:"project_id"`
	StepNumber int                `bson:"step_number"`
	RemindAt   time.Time          `bson:"remind_at"`
	Message    string             `bson:"message"`
	Sent       bool               `bson:"sent"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func (d reminderDoc) reminder() Reminder {
	return Reminder{
		ID:         d.ID.Hex(),
		UserID:     d.UserID,
		ProjectID:  d.ProjectID.Hex(),
		StepNumber: d.StepNumber,
		RemindAt:   d.RemindAt,
		Message:    d.Message,
		Sent:       d.Sent,
		CreatedAt:  d.CreatedAt,
	}
}

type mongoRepository struct {
	reminders *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{reminders: db.Collection(database.RemindersCollection)}
}

func (r *mongoRepository) Create(ctx context.Context, reminder *Reminder) error {
	projectID, err := primitive.ObjectIDFromHex(reminder.ProjectID)
	if err != nil {
		return fmt.Errorf("%w: bad project id", ErrInvalidInput)
	}
	doc := reminderDoc{
		ID:         primitive.NewObjectID(),
		UserID:     reminder.UserID,
		ProjectID:  projectID,
		StepNumber: reminder.StepNumber,
		RemindAt:   reminder.RemindAt,
		Message:    reminder.Message,
		Sent:       false,
		CreatedAt:  reminder.CreatedAt,
	}
	if _, err := r.reminders.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	reminder.ID = doc.ID.Hex()
	return nil
}

func (r *mongoRepository) List(ctx context.Context, userID string, filter ListFilter) ([]Reminder, error) {
	query := bson.M{"user_id": userID}
	if filter.PendingOnly {
		query["sent"] = false
	}
	cur, err := r.reminders.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "remind_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	var docs []reminderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reminders: %w", err)
	}
	out := make([]Reminder, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.reminder())
	}
	return out, nil
}

func (r *mongoRepository) Get(ctx context.Context, userID, id string) (*Reminder, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc reminderDoc
	err = r.reminders.FindOne(ctx, bson.M{"_id": oid, "user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	rem := doc.reminder()
	return &rem, nil
}

func (r *mongoRepository) MarkSent(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.reminders.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"sent": true}})
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
