package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SourceType string

const (
	SourceIssueTracker   SourceType = "issueTracker"
	SourceSpreadsheetRow SourceType = "spreadsheetRow"
)

// TaskLink is the persisted pointer to one external unit of work. The row
// itself lives in the external system; we only store the locator plus the
// team/project it was registered under.
type TaskLink struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ProjectID  string             `json:"projectId" bson:"projectId"`
	TeamID     string             `json:"teamId" bson:"teamId"`
	SourceURL  string             `json:"sourceUrl" bson:"sourceUrl"`
	SourceType SourceType         `json:"sourceType" bson:"sourceType"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
}

// TaskRecord is one external unit of work after normalization. Records from
// the issue tracker and from spreadsheet rows are both flattened into this
// shape; SourceURL is the identity key within a team/project.
type TaskRecord struct {
	TaskID      string            `json:"taskId"`
	ProjectID   string            `json:"projectId"`
	TeamID      string            `json:"teamId"`
	SourceURL   string            `json:"sourceUrl"`
	SourceType  SourceType        `json:"sourceType"`
	Status      string            `json:"status"`
	Title       string            `json:"title,omitempty"`
	Assignee    string            `json:"assignee,omitempty"`
	StartDate   string            `json:"startDate,omitempty"`
	DueDate     string            `json:"dueDate,omitempty"`
	LastUpdated string            `json:"lastUpdated,omitempty"`
	FetchFailed bool              `json:"fetchFailed,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}
