package models

// ProjectProgress is a derived rollup over the task records of one project.
// It is computed on demand and never persisted; only the underlying raw
// task list is cached.
type ProjectProgress struct {
	ProjectID        string         `json:"projectId"`
	TotalTasks       int            `json:"totalTasks"`
	DoneTasks        int            `json:"doneTasks"`
	InProgressTasks  int            `json:"inProgressTasks"`
	OtherStatusTasks int            `json:"otherStatusTasks"`
	Progress         int            `json:"progress"`
	StatusBreakdown  map[string]int `json:"statusBreakdown"`
}

// TeamProgress is the same rollup narrowed to one team within a project.
type TeamProgress struct {
	ProjectID        string         `json:"projectId"`
	TeamID           string         `json:"teamId"`
	TotalTasks       int            `json:"totalTasks"`
	DoneTasks        int            `json:"doneTasks"`
	InProgressTasks  int            `json:"inProgressTasks"`
	OtherStatusTasks int            `json:"otherStatusTasks"`
	Progress         int            `json:"progress"`
	StatusBreakdown  map[string]int `json:"statusBreakdown"`
}
