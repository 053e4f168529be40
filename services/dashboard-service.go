package services

import (
	"context"
	"fmt"
	"time"

	"portal-project/backend/dashboard-service/cache"
	"portal-project/backend/dashboard-service/classify"
	"portal-project/backend/dashboard-service/logging"
	"portal-project/backend/dashboard-service/models"
)

// ProjectStore is the persistence boundary for projects, teams and their
// links.
type ProjectStore interface {
	CreateProject(ctx context.Context, project *models.Project) error
	GetAllProjects(ctx context.Context) ([]models.Project, error)
	GetProjectByID(ctx context.Context, projectID string) (*models.ProjectDetail, error)
	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeamByID(ctx context.Context, teamID string) (*models.Team, error)
	LinkTeam(ctx context.Context, projectID, teamID string) (*models.TeamProjectLink, error)
}

type TaskLinkStore interface {
	Create(ctx context.Context, link *models.TaskLink) error
}

type CommentStore interface {
	Add(ctx context.Context, comment *models.Comment) error
	ListByTask(ctx context.Context, taskID string) ([]models.Comment, error)
}

// DashboardService carries the minimal write path (create project/team,
// append task link, append comment) and the cache-backed read helpers. Every
// write invalidates the cache entries it could stale.
type DashboardService struct {
	projects    ProjectStore
	taskLinks   TaskLinkStore
	comments    CommentStore
	cache       *cache.Cache
	aggregation *AggregationService
}

func NewDashboardService(projects ProjectStore, taskLinks TaskLinkStore, comments CommentStore, entityCache *cache.Cache, aggregation *AggregationService) *DashboardService {
	return &DashboardService{
		projects:    projects,
		taskLinks:   taskLinks,
		comments:    comments,
		cache:       entityCache,
		aggregation: aggregation,
	}
}

func (s *DashboardService) CreateProject(ctx context.Context, name, description string, startDate, endDate time.Time) (*models.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if !endDate.IsZero() && endDate.Before(time.Now()) {
		return nil, fmt.Errorf("expected end date must be in the future")
	}

	project := &models.Project{
		Name:        name,
		Description: description,
		StartDate:   startDate,
		EndDate:     endDate,
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	s.invalidate(cache.ProjectListKey)
	logging.Logger.Infof("Event ID: PROJECT_CREATED, Description: Project %s created", project.ID.Hex())
	return project, nil
}

// ListProjects is a read-mostly helper: cache first, then Mongo.
func (s *DashboardService) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	hit, err := s.cache.Get(cache.ProjectListKey, &projects)
	if err != nil {
		logging.Logger.Warnf("Event ID: CACHE_READ_FAILED, Description: Failed to read project list cache: %v", err)
	}
	if hit {
		return projects, nil
	}

	projects, err = s.projects.GetAllProjects(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cache.ProjectListKey, projects, cache.DefaultTTL); err != nil {
		logging.Logger.Warnf("Event ID: CACHE_WRITE_FAILED, Description: Failed to cache project list: %v", err)
	}
	return projects, nil
}

func (s *DashboardService) GetProject(ctx context.Context, projectID string) (*models.ProjectDetail, error) {
	var detail models.ProjectDetail
	hit, err := s.cache.Get(cache.ProjectKey(projectID), &detail)
	if err != nil {
		logging.Logger.Warnf("Event ID: CACHE_READ_FAILED, Description: Failed to read project cache: %v", err)
	}
	if hit {
		return &detail, nil
	}

	fetched, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cache.ProjectKey(projectID), fetched, cache.DefaultTTL); err != nil {
		logging.Logger.Warnf("Event ID: CACHE_WRITE_FAILED, Description: Failed to cache project %s: %v", projectID, err)
	}
	return fetched, nil
}

// GetTeamTasks serves one team's task slice within a project, cache-first.
// AddTaskLink invalidates the key so new links show up on the next read.
func (s *DashboardService) GetTeamTasks(projectID, teamID string) []models.TaskRecord {
	key := cache.TeamProjectKey(teamID, projectID)
	var tasks []models.TaskRecord
	hit, err := s.cache.Get(key, &tasks)
	if err != nil {
		logging.Logger.Warnf("Event ID: CACHE_READ_FAILED, Description: Failed to read team task cache: %v", err)
	}
	if hit {
		return tasks
	}

	tasks = s.aggregation.GetTasksByTeam(projectID, teamID)
	if err := s.cache.Set(key, tasks, cache.DefaultTTL); err != nil {
		logging.Logger.Warnf("Event ID: CACHE_WRITE_FAILED, Description: Failed to cache team tasks for %s/%s: %v", teamID, projectID, err)
	}
	return tasks
}

func (s *DashboardService) CreateTeam(ctx context.Context, name, poUsername string, sourceType models.SourceType) (*models.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("team name is required")
	}
	if sourceType != models.SourceIssueTracker && sourceType != models.SourceSpreadsheetRow {
		return nil, fmt.Errorf("unknown source type: %s", sourceType)
	}

	team := &models.Team{Name: name, POUsername: poUsername, SourceType: sourceType}
	if err := s.projects.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: TEAM_CREATED, Description: Team %s created", team.ID.Hex())
	return team, nil
}

func (s *DashboardService) LinkTeamToProject(ctx context.Context, projectID, teamID string) (*models.TeamProjectLink, error) {
	if _, err := s.projects.GetTeamByID(ctx, teamID); err != nil {
		return nil, err
	}
	link, err := s.projects.LinkTeam(ctx, projectID, teamID)
	if err != nil {
		return nil, err
	}

	s.invalidate(cache.ProjectKey(projectID))
	return link, nil
}

// AddTaskLink registers one external locator for a team within a project.
// The source type is taken from the team's configuration, never guessed
// from the URL. Duplicate (team, project, sourceUrl) tuples are rejected.
func (s *DashboardService) AddTaskLink(ctx context.Context, projectID, teamID, sourceURL string) (*models.TaskLink, error) {
	if sourceURL == "" {
		return nil, fmt.Errorf("source URL is required")
	}
	team, err := s.projects.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	link := &models.TaskLink{
		ProjectID:  projectID,
		TeamID:     teamID,
		SourceURL:  sourceURL,
		SourceType: team.SourceType,
	}
	if err := s.taskLinks.Create(ctx, link); err != nil {
		return nil, err
	}

	s.invalidate(cache.TaskListKey)
	s.invalidate(cache.TeamProjectKey(teamID, projectID))
	logging.Logger.Infof("Event ID: TASK_LINK_ADDED, Description: Task link added for team %s in project %s", teamID, projectID)
	return link, nil
}

func (s *DashboardService) AddComment(ctx context.Context, taskID, author, body string) (*models.Comment, error) {
	if body == "" {
		return nil, fmt.Errorf("comment body is required")
	}
	comment := &models.Comment{TaskID: taskID, Author: author, Body: body}
	if err := s.comments.Add(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *DashboardService) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	return s.comments.ListByTask(ctx, taskID)
}

// GetProjectStatus layers the date-aware classification on top of the raw
// task rollup.
func (s *DashboardService) GetProjectStatus(ctx context.Context, projectID string) (models.ProjectStatus, error) {
	detail, err := s.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}

	var total, done int
	if progress := s.aggregation.GetProjectProgress(projectID); progress != nil {
		total = progress.TotalTasks
		done = progress.DoneTasks
	}
	return classify.ProjectStatusFor(total, done, detail.Project.EndDate, time.Now()), nil
}

func (s *DashboardService) invalidate(key string) {
	if err := s.cache.Remove(key); err != nil {
		logging.Logger.Warnf("Event ID: CACHE_INVALIDATE_FAILED, Description: Failed to invalidate cache key %s: %v", key, err)
	}
}
