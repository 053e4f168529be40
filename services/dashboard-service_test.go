package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"portal-project/backend/dashboard-service/cache"
	"portal-project/backend/dashboard-service/models"
	"portal-project/backend/dashboard-service/repositories"
)

type fakeProjectStore struct {
	created   []models.Project
	teams     map[string]*models.Team
	detail    *models.ProjectDetail
	listCalls int
}

func (f *fakeProjectStore) CreateProject(ctx context.Context, project *models.Project) error {
	f.created = append(f.created, *project)
	return nil
}

func (f *fakeProjectStore) GetAllProjects(ctx context.Context) ([]models.Project, error) {
	f.listCalls++
	return f.created, nil
}

func (f *fakeProjectStore) GetProjectByID(ctx context.Context, projectID string) (*models.ProjectDetail, error) {
	if f.detail == nil {
		return nil, errors.New("project not found")
	}
	return f.detail, nil
}

func (f *fakeProjectStore) CreateTeam(ctx context.Context, team *models.Team) error {
	if f.teams == nil {
		f.teams = make(map[string]*models.Team)
	}
	f.teams[team.Name] = team
	return nil
}

func (f *fakeProjectStore) GetTeamByID(ctx context.Context, teamID string) (*models.Team, error) {
	team, ok := f.teams[teamID]
	if !ok {
		return nil, errors.New("team not found")
	}
	return team, nil
}

func (f *fakeProjectStore) LinkTeam(ctx context.Context, projectID, teamID string) (*models.TeamProjectLink, error) {
	return &models.TeamProjectLink{ProjectID: projectID, TeamID: teamID}, nil
}

type fakeTaskLinkStore struct {
	created []models.TaskLink
	err     error
}

func (f *fakeTaskLinkStore) Create(ctx context.Context, link *models.TaskLink) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *link)
	return nil
}

type fakeCommentStore struct {
	comments []models.Comment
}

func (f *fakeCommentStore) Add(ctx context.Context, comment *models.Comment) error {
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeCommentStore) ListByTask(ctx context.Context, taskID string) ([]models.Comment, error) {
	var out []models.Comment
	for _, comment := range f.comments {
		if comment.TaskID == taskID {
			out = append(out, comment)
		}
	}
	return out, nil
}

func newDashboard(projects *fakeProjectStore, taskLinks *fakeTaskLinkStore, aggregation *AggregationService) (*DashboardService, *cache.Cache) {
	entityCache := cache.New(cache.NewMemoryStore())
	return NewDashboardService(projects, taskLinks, &fakeCommentStore{}, entityCache, aggregation), entityCache
}

func TestCreateProjectValidation(t *testing.T) {
	service, _ := newDashboard(&fakeProjectStore{}, &fakeTaskLinkStore{}, nil)

	if _, err := service.CreateProject(context.Background(), "", "", time.Time{}, time.Time{}); err == nil {
		t.Error("expected an error for an empty project name")
	}
	past := time.Now().Add(-24 * time.Hour)
	if _, err := service.CreateProject(context.Background(), "Portal", "", time.Time{}, past); err == nil {
		t.Error("expected an error for an end date in the past")
	}
}

func TestCreateProjectInvalidatesListCache(t *testing.T) {
	projects := &fakeProjectStore{}
	service, entityCache := newDashboard(projects, &fakeTaskLinkStore{}, nil)

	if err := entityCache.Set(cache.ProjectListKey, []models.Project{{Name: "stale"}}, time.Minute); err != nil {
		t.Fatal(err)
	}

	future := time.Now().Add(30 * 24 * time.Hour)
	if _, err := service.CreateProject(context.Background(), "Portal", "internal portal", time.Now(), future); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	var cached []models.Project
	if hit, _ := entityCache.Get(cache.ProjectListKey, &cached); hit {
		t.Error("expected project list cache to be invalidated after create")
	}
}

func TestListProjectsIsCacheFirst(t *testing.T) {
	projects := &fakeProjectStore{created: []models.Project{{Name: "Portal"}}}
	service, _ := newDashboard(projects, &fakeTaskLinkStore{}, nil)

	for i := 0; i < 3; i++ {
		listed, err := service.ListProjects(context.Background())
		if err != nil {
			t.Fatalf("ListProjects failed: %v", err)
		}
		if len(listed) != 1 || listed[0].Name != "Portal" {
			t.Fatalf("unexpected listing: %+v", listed)
		}
	}
	if projects.listCalls != 1 {
		t.Errorf("expected one store query across repeated reads, got %d", projects.listCalls)
	}
}

func TestCreateTeamRejectsUnknownSourceType(t *testing.T) {
	service, _ := newDashboard(&fakeProjectStore{}, &fakeTaskLinkStore{}, nil)

	if _, err := service.CreateTeam(context.Background(), "Core", "po", models.SourceType("carrier-pigeon")); err == nil {
		t.Error("expected an error for an unknown source type")
	}
	if _, err := service.CreateTeam(context.Background(), "Core", "po", models.SourceIssueTracker); err != nil {
		t.Errorf("CreateTeam failed: %v", err)
	}
}

func TestAddTaskLinkUsesTeamSourceType(t *testing.T) {
	projects := &fakeProjectStore{teams: map[string]*models.Team{
		"sheet-team": {Name: "sheet-team", SourceType: models.SourceSpreadsheetRow},
	}}
	taskLinks := &fakeTaskLinkStore{}
	service, _ := newDashboard(projects, taskLinks, nil)

	link, err := service.AddTaskLink(context.Background(), "p1", "sheet-team", "https://docs/d/s1/edit#range=3:3")
	if err != nil {
		t.Fatalf("AddTaskLink failed: %v", err)
	}
	if link.SourceType != models.SourceSpreadsheetRow {
		t.Errorf("source type must come from the team config, got %q", link.SourceType)
	}
	if len(taskLinks.created) != 1 {
		t.Fatalf("expected one persisted link, got %d", len(taskLinks.created))
	}
}

func TestAddTaskLinkRejectsDuplicates(t *testing.T) {
	projects := &fakeProjectStore{teams: map[string]*models.Team{
		"t1": {Name: "t1", SourceType: models.SourceIssueTracker},
	}}
	taskLinks := &fakeTaskLinkStore{err: repositories.ErrDuplicateTaskLink}
	service, entityCache := newDashboard(projects, taskLinks, nil)

	if err := entityCache.Set(cache.TaskListKey, []models.TaskRecord{{TaskID: "A-1"}}, time.Minute); err != nil {
		t.Fatal(err)
	}

	_, err := service.AddTaskLink(context.Background(), "p1", "t1", "https://tracker/browse/A-1")
	if !errors.Is(err, repositories.ErrDuplicateTaskLink) {
		t.Fatalf("expected ErrDuplicateTaskLink, got %v", err)
	}
	if len(taskLinks.created) != 0 {
		t.Error("duplicate link must not be persisted")
	}
	// A rejected write leaves the cached task list alone.
	var cached []models.TaskRecord
	if hit, _ := entityCache.Get(cache.TaskListKey, &cached); !hit {
		t.Error("expected task list cache to survive a rejected write")
	}
}

func TestAddTaskLinkInvalidatesTaskCaches(t *testing.T) {
	projects := &fakeProjectStore{teams: map[string]*models.Team{
		"t1": {Name: "t1", SourceType: models.SourceIssueTracker},
	}}
	service, entityCache := newDashboard(projects, &fakeTaskLinkStore{}, nil)

	if err := entityCache.Set(cache.TaskListKey, []models.TaskRecord{{TaskID: "old"}}, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := entityCache.Set(cache.TeamProjectKey("t1", "p1"), []models.TaskRecord{{TaskID: "old"}}, time.Minute); err != nil {
		t.Fatal(err)
	}

	if _, err := service.AddTaskLink(context.Background(), "p1", "t1", "https://tracker/browse/A-2"); err != nil {
		t.Fatalf("AddTaskLink failed: %v", err)
	}

	var cached []models.TaskRecord
	if hit, _ := entityCache.Get(cache.TaskListKey, &cached); hit {
		t.Error("expected task list cache to be invalidated")
	}
	if hit, _ := entityCache.Get(cache.TeamProjectKey("t1", "p1"), &cached); hit {
		t.Error("expected team/project cache to be invalidated")
	}
}

func TestGetTeamTasksIsCacheFirst(t *testing.T) {
	aggregation := newAggregation(
		&fakeLister{links: []models.TaskLink{link("p1", "t1", "https://tracker/browse/A-1", models.SourceIssueTracker)}},
		echoSource(models.SourceIssueTracker, "Done"),
		echoSource(models.SourceSpreadsheetRow, ""))
	if err := aggregation.Refresh(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	projects := &fakeProjectStore{teams: map[string]*models.Team{
		"t1": {Name: "t1", SourceType: models.SourceIssueTracker},
	}}
	service, entityCache := newDashboard(projects, &fakeTaskLinkStore{}, aggregation)

	tasks := service.GetTeamTasks("p1", "t1")
	if len(tasks) != 1 || tasks[0].Status != "Done" {
		t.Fatalf("unexpected team tasks: %+v", tasks)
	}

	// The read populates the team/project key.
	var cached []models.TaskRecord
	if hit, _ := entityCache.Get(cache.TeamProjectKey("t1", "p1"), &cached); !hit {
		t.Fatal("expected team tasks to be cached after the first read")
	}

	// Subsequent reads serve the cached entry.
	seeded := []models.TaskRecord{{TaskID: "seeded", ProjectID: "p1", TeamID: "t1"}}
	if err := entityCache.Set(cache.TeamProjectKey("t1", "p1"), seeded, time.Minute); err != nil {
		t.Fatal(err)
	}
	if tasks := service.GetTeamTasks("p1", "t1"); len(tasks) != 1 || tasks[0].TaskID != "seeded" {
		t.Errorf("expected cached entry to be served, got %+v", tasks)
	}

	// A new link invalidates the key, so the next read falls through to the
	// aggregation snapshot.
	if _, err := service.AddTaskLink(context.Background(), "p1", "t1", "https://tracker/browse/A-2"); err != nil {
		t.Fatalf("AddTaskLink failed: %v", err)
	}
	if tasks := service.GetTeamTasks("p1", "t1"); len(tasks) != 1 || tasks[0].TaskID == "seeded" {
		t.Errorf("expected fresh aggregation data after invalidation, got %+v", tasks)
	}
}

func TestCommentsRoundTrip(t *testing.T) {
	service, _ := newDashboard(&fakeProjectStore{}, &fakeTaskLinkStore{}, nil)

	if _, err := service.AddComment(context.Background(), "A-1", "dana", ""); err == nil {
		t.Error("expected an error for an empty comment body")
	}
	if _, err := service.AddComment(context.Background(), "A-1", "dana", "blocked on infra"); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}

	comments, err := service.ListComments(context.Background(), "A-1")
	if err != nil {
		t.Fatalf("ListComments failed: %v", err)
	}
	if len(comments) != 1 || comments[0].Body != "blocked on infra" {
		t.Errorf("unexpected comments: %+v", comments)
	}
	if other, _ := service.ListComments(context.Background(), "A-2"); len(other) != 0 {
		t.Errorf("comments leaked across tasks: %+v", other)
	}
}

func TestGetProjectStatus(t *testing.T) {
	future := time.Now().Add(30 * 24 * time.Hour)
	past := time.Now().Add(-30 * 24 * time.Hour)

	tests := []struct {
		name    string
		links   []models.TaskLink
		status  string
		endDate time.Time
		want    models.ProjectStatus
	}{
		{"no tasks", nil, "", future, models.ProjectPlanning},
		{
			"all done",
			[]models.TaskLink{link("p1", "t1", "u1", models.SourceIssueTracker)},
			"Done", past, models.ProjectCompleted,
		},
		{
			"open tasks before deadline",
			[]models.TaskLink{link("p1", "t1", "u1", models.SourceIssueTracker)},
			"To Do", future, models.ProjectInProgress,
		},
		{
			"open tasks past deadline",
			[]models.TaskLink{link("p1", "t1", "u1", models.SourceIssueTracker)},
			"To Do", past, models.ProjectOverdue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aggregation := newAggregation(&fakeLister{links: tt.links},
				echoSource(models.SourceIssueTracker, tt.status),
				echoSource(models.SourceSpreadsheetRow, ""))
			if err := aggregation.Refresh(context.Background(), true); err != nil {
				t.Fatal(err)
			}

			projects := &fakeProjectStore{detail: &models.ProjectDetail{
				Project: models.Project{Name: "Portal", EndDate: tt.endDate},
			}}
			service, _ := newDashboard(projects, &fakeTaskLinkStore{}, aggregation)

			got, err := service.GetProjectStatus(context.Background(), "p1")
			if err != nil {
				t.Fatalf("GetProjectStatus failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}
