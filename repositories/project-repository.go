package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"portal-project/backend/dashboard-service/models"
)

type ProjectRepo struct {
	projectsCollection *mongo.Collection
	teamsCollection    *mongo.Collection
	linksCollection    *mongo.Collection
}

func NewProjectRepo(projects, teams, links *mongo.Collection) *ProjectRepo {
	return &ProjectRepo{
		projectsCollection: projects,
		teamsCollection:    teams,
		linksCollection:    links,
	}
}

func (r *ProjectRepo) CreateProject(ctx context.Context, project *models.Project) error {
	project.ID = primitive.NewObjectID()
	project.CreatedAt = time.Now()
	if _, err := r.projectsCollection.InsertOne(ctx, project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *ProjectRepo) GetAllProjects(ctx context.Context) ([]models.Project, error) {
	cursor, err := r.projectsCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve projects: %w", err)
	}
	defer cursor.Close(ctx)

	var projects []models.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	return projects, nil
}

// GetProjectByID returns one project together with its team links.
func (r *ProjectRepo) GetProjectByID(ctx context.Context, projectID string) (*models.ProjectDetail, error) {
	objectID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, fmt.Errorf("invalid project ID format")
	}

	var project models.Project
	err = r.projectsCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&project)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("project not found")
		}
		return nil, fmt.Errorf("error fetching project: %w", err)
	}

	cursor, err := r.linksCollection.Find(ctx, bson.M{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve team links: %w", err)
	}
	defer cursor.Close(ctx)

	var links []models.TeamProjectLink
	if err := cursor.All(ctx, &links); err != nil {
		return nil, fmt.Errorf("failed to decode team links: %w", err)
	}

	return &models.ProjectDetail{Project: project, Teams: links}, nil
}

func (r *ProjectRepo) CreateTeam(ctx context.Context, team *models.Team) error {
	team.ID = primitive.NewObjectID()
	team.CreatedAt = time.Now()
	if _, err := r.teamsCollection.InsertOne(ctx, team); err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *ProjectRepo) GetTeamByID(ctx context.Context, teamID string) (*models.Team, error) {
	objectID, err := primitive.ObjectIDFromHex(teamID)
	if err != nil {
		return nil, fmt.Errorf("invalid team ID format")
	}

	var team models.Team
	err = r.teamsCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&team)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("team not found")
		}
		return nil, fmt.Errorf("error fetching team: %w", err)
	}
	return &team, nil
}

// LinkTeam attaches a team to a project.
func (r *ProjectRepo) LinkTeam(ctx context.Context, projectID, teamID string) (*models.TeamProjectLink, error) {
	link := &models.TeamProjectLink{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		TeamID:    teamID,
		CreatedAt: time.Now(),
	}
	if _, err := r.linksCollection.InsertOne(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to link team to project: %w", err)
	}
	return link, nil
}
