package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"portal-project/backend/dashboard-service/cache"
	"portal-project/backend/dashboard-service/classify"
	"portal-project/backend/dashboard-service/fetchers"
	"portal-project/backend/dashboard-service/logging"
	"portal-project/backend/dashboard-service/models"
)

// ErrRefreshFailed marks the only fatal refresh condition: the upstream
// list-all query itself failed. Per-item fetch failures never surface as
// errors; they degrade to placeholder records.
var ErrRefreshFailed = errors.New("refresh failed")

// TaskSource is the capability both fetcher adapters implement: given N
// locators, return exactly N normalized records, never failing on a
// single-item error.
type TaskSource interface {
	FetchAll(ctx context.Context, locators []fetchers.TaskLocator) []models.TaskRecord
}

// TaskLinkLister is the persistence boundary the aggregation consumes.
type TaskLinkLister interface {
	ListAll(ctx context.Context) ([]models.TaskLink, error)
}

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// AggregationService owns the process-wide collection of task records,
// refreshes it from the two fetcher adapters and answers every derived
// metric query from an in-memory snapshot. Read-side queries are pure over
// the snapshot; only Refresh mutates it.
type AggregationService struct {
	links   TaskLinkLister
	tracker TaskSource
	sheets  TaskSource
	cache   *cache.Cache
	rules   *classify.Rules

	mu      sync.Mutex
	state   State
	tasks   []models.TaskRecord
	lastErr error
	// seq is the monotonic refresh counter. A finished refresh only
	// publishes its result while it is still the latest issued one, so a
	// slow stale response can never overwrite a newer fast one.
	seq uint64
}

func NewAggregationService(links TaskLinkLister, tracker, sheets TaskSource, taskCache *cache.Cache, rules *classify.Rules) *AggregationService {
	if rules == nil {
		rules = classify.DefaultRules()
	}
	return &AggregationService{
		links:   links,
		tracker: tracker,
		sheets:  sheets,
		cache:   taskCache,
		rules:   rules,
		state:   StateIdle,
	}
}

// Refresh rebuilds the task snapshot. Unless force is set, a valid cache
// entry short-circuits the network entirely. A failing list-all query is
// fatal for the refresh but retains the last-known-good snapshot; fetcher
// failures degrade to per-record placeholders.
func (s *AggregationService) Refresh(ctx context.Context, force bool) error {
	s.mu.Lock()
	s.seq++
	mySeq := s.seq
	s.state = StateLoading
	s.mu.Unlock()

	if !force {
		var cached []models.TaskRecord
		hit, err := s.cache.Get(cache.TaskListKey, &cached)
		if err != nil {
			logging.Logger.Warnf("Event ID: CACHE_READ_FAILED, Description: Failed to read task list cache: %v", err)
		}
		if hit {
			logging.Logger.Infof("Event ID: TASKS_CACHE_HIT, Description: Serving %d task records from cache", len(cached))
			s.publish(mySeq, cached, nil)
			return nil
		}
	}

	links, err := s.links.ListAll(ctx)
	if err != nil {
		refreshErr := fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		logging.Logger.Errorf("Event ID: REFRESH_FAILED, Description: Task link query failed: %v", err)
		s.publish(mySeq, nil, refreshErr)
		return refreshErr
	}

	trackerLocators, sheetLocators := partition(links)

	var trackerRecords, sheetRecords []models.TaskRecord
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		trackerRecords = s.tracker.FetchAll(ctx, trackerLocators)
	}()
	go func() {
		defer wg.Done()
		sheetRecords = s.sheets.FetchAll(ctx, sheetLocators)
	}()
	wg.Wait()

	merged := make([]models.TaskRecord, 0, len(trackerRecords)+len(sheetRecords))
	merged = append(merged, trackerRecords...)
	merged = append(merged, sheetRecords...)

	// The cache write sits behind the same sequence check as the in-memory
	// snapshot, otherwise a superseded slow refresh could poison the cache
	// after a newer one already wrote its result.
	if s.publish(mySeq, merged, nil) {
		if err := s.cache.Set(cache.TaskListKey, merged, cache.DefaultTTL); err != nil {
			logging.Logger.Warnf("Event ID: CACHE_WRITE_FAILED, Description: Failed to cache task list: %v", err)
		}
		logging.Logger.Infof("Event ID: TASKS_REFRESHED, Description: Aggregated %d task records (%d tracker, %d spreadsheet)",
			len(merged), len(trackerRecords), len(sheetRecords))
	}
	return nil
}

// publish applies a finished refresh to the shared state. It reports false
// when the refresh has been superseded, in which case the result is dropped
// entirely.
func (s *AggregationService) publish(seq uint64, tasks []models.TaskRecord, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		logging.Logger.Infof("Event ID: STALE_REFRESH_DISCARDED, Description: Refresh %d superseded by %d, result dropped", seq, s.seq)
		return false
	}
	if err != nil {
		// Last-known-good snapshot stays in place; consumers read the
		// error flag separately.
		s.state = StateError
		s.lastErr = err
		return true
	}
	s.tasks = tasks
	s.lastErr = nil
	s.state = StateReady
	return true
}

func partition(links []models.TaskLink) (tracker, sheet []fetchers.TaskLocator) {
	for _, link := range links {
		locator := fetchers.TaskLocator{
			URL:       link.SourceURL,
			ProjectID: link.ProjectID,
			TeamID:    link.TeamID,
		}
		switch link.SourceType {
		case models.SourceSpreadsheetRow:
			sheet = append(sheet, locator)
		default:
			tracker = append(tracker, locator)
		}
	}
	return tracker, sheet
}

// State reports the store state together with the last refresh error, which
// is non-nil only for the fatal list-query case.
func (s *AggregationService) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.lastErr
}

func (s *AggregationService) snapshot() []models.TaskRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]models.TaskRecord, len(s.tasks))
	copy(tasks, s.tasks)
	return tasks
}

// GetProjectProgress returns the rollup for one project, or nil when the
// project has no tasks ("no data", not "0% done").
func (s *AggregationService) GetProjectProgress(projectID string) *models.ProjectProgress {
	tasks := s.GetTasksByProject(projectID)
	summary := s.rules.Summarize(tasks)
	if summary == nil {
		return nil
	}
	return &models.ProjectProgress{
		ProjectID:        projectID,
		TotalTasks:       summary.TotalTasks,
		DoneTasks:        summary.DoneTasks,
		InProgressTasks:  summary.InProgressTasks,
		OtherStatusTasks: summary.OtherStatusTasks,
		Progress:         summary.Progress,
		StatusBreakdown:  summary.StatusBreakdown,
	}
}

// GetTeamProgress returns the rollup for one team within a project, or nil
// when the filtered set is empty.
func (s *AggregationService) GetTeamProgress(projectID, teamID string) *models.TeamProgress {
	tasks := s.GetTasksByTeam(projectID, teamID)
	summary := s.rules.Summarize(tasks)
	if summary == nil {
		return nil
	}
	return &models.TeamProgress{
		ProjectID:        projectID,
		TeamID:           teamID,
		TotalTasks:       summary.TotalTasks,
		DoneTasks:        summary.DoneTasks,
		InProgressTasks:  summary.InProgressTasks,
		OtherStatusTasks: summary.OtherStatusTasks,
		Progress:         summary.Progress,
		StatusBreakdown:  summary.StatusBreakdown,
	}
}

func (s *AggregationService) GetTasksByProject(projectID string) []models.TaskRecord {
	var tasks []models.TaskRecord
	for _, task := range s.snapshot() {
		if task.ProjectID == projectID {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func (s *AggregationService) GetTasksByTeam(projectID, teamID string) []models.TaskRecord {
	var tasks []models.TaskRecord
	for _, task := range s.snapshot() {
		if task.ProjectID == projectID && task.TeamID == teamID {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// GetNotDoneTasksByTeam lists a team's tasks that still need action.
func (s *AggregationService) GetNotDoneTasksByTeam(projectID, teamID string) []models.TaskRecord {
	var tasks []models.TaskRecord
	for _, task := range s.GetTasksByTeam(projectID, teamID) {
		if !s.rules.IsDone(task.Status) {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// ClearCache evicts the cached task list without triggering a refetch.
func (s *AggregationService) ClearCache() error {
	return s.cache.Remove(cache.TaskListKey)
}
