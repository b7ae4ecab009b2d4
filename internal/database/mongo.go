package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"vibe-tracker/tracker-backend/internal/config"
)

// Collection names shared by the mongo repositories.
const (
	ProjectsCollection     = "projects"
	StepProgressCollection = "step_progress"
	UsersCollection        = "users"
	RemindersCollection    = "reminders"
)

// ConnectMongo dials the configured server and pings it.
func ConnectMongo(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().ApplyURI(cfg.MongoURI)
	if cfg.MaxConnections > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxConnections))
	}

	logger.Info("Connecting to mongo", zap.String("db", cfg.MongoDB))
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client, client.Database(cfg.MongoDB), nil
}

// EnsureMongoIndexes creates the indexes the repositories query by.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		ProjectsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		},
		StepProgressCollection: {
			{
				Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "step_number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		UsersCollection: {
			{Keys: bson.D{{Key: "firebase_uid", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		RemindersCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "sent", Value: 1}, {Key: "remind_at", Value: 1}}},
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "step_number", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
