package projects

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
	"vibe-tracker/tracker-backend/internal/progress"
)

type projectDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	UserID          string             `bson:"user_id"`
	Name            string             `bson:"name"`
	Description     string             `bson:"description"`
	OverallProgress int                `bson:"overall_progress"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

func (d projectDoc) project() Project {
	return Project{
		ID:              d.ID.Hex(),
		UserID:          d.UserID,
		Name:            d.Name,
		Description:     d.Description,
		OverallProgress: d.OverallProgress,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type stepDoc struct {
	ProjectID       primitive.ObjectID  `bson:"project_id"`
	StepNumber      int                 `bson:"step_number"`
	Status          progress.Status     `bson:"status"`
	ProgressPercent int                 `bson:"progress_percent"`
	Notes           string              `bson:"notes"`
	CompletedAt     *time.Time          `bson:"completed_at"`
	Reminders       []progress.Reminder `bson:"reminders"`
}

func (d stepDoc) record() progress.StepProgress {
	return normalizeRecord(progress.StepProgress{
		StepNumber:      d.StepNumber,
		Status:          d.Status,
		ProgressPercent: d.ProgressPercent,
		Notes:           d.Notes,
		CompletedAt:     d.CompletedAt,
		Reminders:       d.Reminders,
	})
}

type mongoRepository struct {
	projects *mongo.Collection
	steps    *mongo.Collection
}

// NewMongoRepository stores projects in the projects and step_progress
// collections.
func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		projects: db.Collection(database.ProjectsCollection),
		steps:    db.Collection(database.StepProgressCollection),
	}
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func (r *mongoRepository) findProjects(ctx context.Context, filter bson.M) ([]Project, error) {
	cur, err := r.projects.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	var docs []projectDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}

	out := make([]Project, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.project())
	}
	return out, nil
}

func (r *mongoRepository) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	return r.findProjects(ctx, bson.M{"user_id": userID})
}

func (r *mongoRepository) ListIdleProjects(ctx context.Context, updatedBefore time.Time) ([]Project, error) {
	return r.findProjects(ctx, bson.M{
		"updated_at":       bson.M{"$lte": updatedBefore},
		"overall_progress": bson.M{"$lt": 100},
	})
}

func (r *mongoRepository) CreateProject(ctx context.Context, project *Project, seed []progress.StepProgress) error {
	doc := projectDoc{
		ID:              primitive.NewObjectID(),
		UserID:          project.UserID,
		Name:            project.Name,
		Description:     project.Description,
		OverallProgress: project.OverallProgress,
		CreatedAt:       project.CreatedAt,
		UpdatedAt:       project.UpdatedAt,
	}
	if _, err := r.projects.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	project.ID = doc.ID.Hex()

	if len(seed) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(seed))
	for _, rec := range seed {
		rec = normalizeRecord(rec)
		docs = append(docs, stepDoc{
			ProjectID:       doc.ID,
			StepNumber:      rec.StepNumber,
			Status:          rec.Status,
			ProgressPercent: rec.ProgressPercent,
			Notes:           rec.Notes,
			CompletedAt:     rec.CompletedAt,
			Reminders:       rec.Reminders,
		})
	}
	if _, err := r.steps.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to seed step progress: %w", err)
	}
	return nil
}

func (r *mongoRepository) GetProject(ctx context.Context, userID, id string) (*Project, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	var doc projectDoc
	err = r.projects.FindOne(ctx, bson.M{"_id": oid, "user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	p := doc.project()
	return &p, nil
}

func (r *mongoRepository) UpdateProject(ctx context.Context, project *Project) error {
	oid, err := parseObjectID(project.ID)
	if err != nil {
		return err
	}
	res, err := r.projects.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": project.UserID},
		bson.M{"$set": bson.M{
			"name":        project.Name,
			"description": project.Description,
			"updated_at":  project.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepository) DeleteProject(ctx context.Context, userID, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := r.projects.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	if _, err := r.steps.DeleteMany(ctx, bson.M{"project_id": oid}); err != nil {
		return fmt.Errorf("failed to delete step progress: %w", err)
	}
	return nil
}

func (r *mongoRepository) ListStepProgress(ctx context.Context, projectID string) ([]progress.StepProgress, error) {
	oid, err := parseObjectID(projectID)
	if err != nil {
		return nil, err
	}
	cur, err := r.steps.Find(ctx, bson.M{"project_id": oid}, options.Find().SetSort(bson.D{{Key: "step_number", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list step progress: %w", err)
	}
	var docs []stepDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode step progress: %w", err)
	}

	out := make([]progress.StepProgress, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.record())
	}
	return out, nil
}

// stepDefaults are written on insert for every field the update leaves out.
func stepDefaults(oid primitive.ObjectID, stepNumber int, set bson.M) bson.M {
	def := progress.Default(stepNumber)
	onInsert := bson.M{"project_id": oid, "step_number": stepNumber}
	for key, value := range map[string]interface{}{
		"status":           def.Status,
		"progress_percent": def.ProgressPercent,
		"notes":            def.Notes,
		"completed_at":     nil,
		"reminders":        def.Reminders,
	} {
		if _, ok := set[key]; !ok {
			onInsert[key] = value
		}
	}
	return onInsert
}

func (r *mongoRepository) UpsertStepProgress(ctx context.Context, projectID string, stepNumber int, patch progress.Patch) (*progress.StepProgress, error) {
	oid, err := parseObjectID(projectID)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.ProgressPercent != nil {
		set["progress_percent"] = *patch.ProgressPercent
	}
	if patch.Notes != nil {
		set["notes"] = *patch.Notes
	}
	if patch.CompletedAt.Present {
		set["completed_at"] = patch.CompletedAt.Value
	}

	update := bson.M{"$setOnInsert": stepDefaults(oid, stepNumber, set)}
	if len(set) > 0 {
		update["$set"] = set
	}

	var doc stepDoc
	err = r.steps.FindOneAndUpdate(ctx,
		bson.M{"project_id": oid, "step_number": stepNumber},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert step progress: %w", err)
	}
	rec := doc.record()
	return &rec, nil
}

func (r *mongoRepository) SetOverallProgress(ctx context.Context, projectID string, overall int, updatedAt time.Time) error {
	oid, err := parseObjectID(projectID)
	if err != nil {
		return err
	}
	_, err = r.projects.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"overall_progress": overall, "updated_at": updatedAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to update overall progress: %w", err)
	}
	return nil
}

func (r *mongoRepository) AppendReminder(ctx context.Context, projectID string, stepNumber int, reminder progress.Reminder) error {
	oid, err := parseObjectID(projectID)
	if err != nil {
		return err
	}
	onInsert := stepDefaults(oid, stepNumber, bson.M{"reminders": true})
	_, err = r.steps.UpdateOne(ctx,
		bson.M{"project_id": oid, "step_number": stepNumber},
		bson.M{"$push": bson.M{"reminders": reminder}, "$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to attach reminder: %w", err)
	}
	return nil
}

func (r *mongoRepository) SetReminderSent(ctx context.Context, projectID string, stepNumber int, reminderID string) error {
	oid, err := parseObjectID(projectID)
	if err != nil {
		return err
	}
	_, err = r.steps.UpdateOne(ctx,
		bson.M{"project_id": oid, "step_number": stepNumber, "reminders.id": reminderID},
		bson.M{"$set": bson.M{"reminders.$.sent": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark embedded reminder sent: %w", err)
	}
	return nil
}
