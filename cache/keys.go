package cache

import "fmt"

// Cache keys are deterministic functions of entity ids so every consumer
// hits the same entry.

const (
	TaskListKey    = "tasks:all"
	ProjectListKey = "projects:all"
)

func ProjectKey(projectID string) string {
	return fmt.Sprintf("project:%s", projectID)
}

func TeamProjectKey(teamID, projectID string) string {
	return fmt.Sprintf("team:%s:project:%s", teamID, projectID)
}
