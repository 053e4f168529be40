package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"portal-project/backend/dashboard-service/models"
)

// ErrDuplicateTaskLink is returned when a task link with the same
// (teamId, projectId, sourceUrl) tuple already exists.
var ErrDuplicateTaskLink = errors.New("task link already exists for this team and project")

type TaskLinkRepo struct {
	collection *mongo.Collection
}

func NewTaskLinkRepo(collection *mongo.Collection) *TaskLinkRepo {
	return &TaskLinkRepo{collection: collection}
}

// ListAll returns every registered task link across all projects and teams.
func (r *TaskLinkRepo) ListAll(ctx context.Context) ([]models.TaskLink, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task links: %w", err)
	}
	defer cursor.Close(ctx)

	var links []models.TaskLink
	if err := cursor.All(ctx, &links); err != nil {
		return nil, fmt.Errorf("failed to decode task links: %w", err)
	}
	return links, nil
}

// Create inserts a task link. The (teamId, projectId, sourceUrl) tuple is
// unique; duplicates are rejected without mutating state.
func (r *TaskLinkRepo) Create(ctx context.Context, link *models.TaskLink) error {
	filter := bson.M{
		"teamId":    link.TeamID,
		"projectId": link.ProjectID,
		"sourceUrl": link.SourceURL,
	}
	err := r.collection.FindOne(ctx, filter).Err()
	if err == nil {
		return ErrDuplicateTaskLink
	}
	if err != mongo.ErrNoDocuments {
		return fmt.Errorf("failed to check for existing task link: %w", err)
	}

	link.ID = primitive.NewObjectID()
	link.CreatedAt = time.Now()
	if _, err := r.collection.InsertOne(ctx, link); err != nil {
		return fmt.Errorf("failed to create task link: %w", err)
	}
	return nil
}
