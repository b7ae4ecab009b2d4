package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vibe-tracker/tracker-backend/internal/database"
	"vibe-tracker/tracker-backend/pkg/cache"
)

// UserRepository upserts the users seen by the API.
type UserRepository interface {
	UpsertUser(ctx context.Context, id Identity, seenAt time.Time) error
}

type mongoUserRepository struct {
	users *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{users: db.Collection(database.UsersCollection)}
}

func (r *mongoUserRepository) UpsertUser(ctx context.Context, id Identity, seenAt time.Time) error {
	_, err := r.users.UpdateOne(ctx,
		bson.M{"firebase_uid": id.UID},
		bson.M{
			"$setOnInsert": bson.M{"firebase_uid": id.UID, "created_at": seenAt},
			"$set": bson.M{
				"email":        id.Email,
				"display_name": id.Name,
				"last_seen_at": seenAt,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// User is the postgres row for a caller.
type User struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid"`
	FirebaseUID string    `gorm:"uniqueIndex;not null"`
	Email       string
	DisplayName string
	LastSeenAt  time.Time
	CreatedAt   time.Time
}

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Migrate() error {
	return r.db.AutoMigrate(&User{})
}

func (r *PostgresUserRepository) UpsertUser(ctx context.Context, id Identity, seenAt time.Time) error {
	row := User{
		ID:          uuid.New(),
		FirebaseUID: id.UID,
		Email:       id.Email,
		DisplayName: id.Name,
		LastSeenAt:  seenAt,
		CreatedAt:   seenAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "firebase_uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "last_seen_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// MemoryUserRepository keeps users in process for the memory driver.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]User)}
}

func (r *MemoryUserRepository) UpsertUser(_ context.Context, id Identity, seenAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id.UID]
	if !ok {
		u = User{ID: uuid.New(), FirebaseUID: id.UID, CreatedAt: seenAt}
	}
	u.Email = id.Email
	u.DisplayName = id.Name
	u.LastSeenAt = seenAt
	r.users[id.UID] = u
	return nil
}

// Get returns the stored user.
func (r *MemoryUserRepository) Get(uid string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[uid]
	return u, ok
}

// UserTouch upserts the caller at most once per ttl per uid.
type UserTouch struct {
	repo   UserRepository
	seen   *cache.TTLCache[struct{}]
	now    func() time.Time
	logger *zap.Logger
}

func NewUserTouch(repo UserRepository, ttl time.Duration, logger *zap.Logger) *UserTouch {
	return &UserTouch{
		repo:   repo,
		seen:   cache.New[struct{}](ttl),
		now:    time.Now,
		logger: logger,
	}
}

// Touch records id. Failures are logged and retried on the next request.
func (t *UserTouch) Touch(ctx context.Context, id Identity) {
	if !t.seen.SetIfAbsent(id.UID, struct{}{}) {
		return
	}
	if err := t.repo.UpsertUser(ctx, id, t.now().UTC()); err != nil {
		t.seen.Delete(id.UID)
		t.logger.Warn("Failed to record user", zap.String("user_id", id.UID), zap.Error(err))
	}
}

func (t *UserTouch) Close() {
	t.seen.Stop()
}
