package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "Planning"
	ProjectInProgress ProjectStatus = "In Progress"
	ProjectCompleted  ProjectStatus = "Completed"
	ProjectOverdue    ProjectStatus = "Overdue"
)

type Project struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	StartDate   time.Time          `json:"startDate" bson:"startDate"`
	EndDate     time.Time          `json:"endDate" bson:"endDate"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

type Team struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name       string             `json:"name" bson:"name"`
	POUsername string             `json:"poUsername" bson:"poUsername"`
	// SourceType decides which fetcher adapter the team's task links are
	// routed to; it is team configuration, not derived from the URLs.
	SourceType SourceType `json:"sourceType" bson:"sourceType"`
	CreatedAt  time.Time  `json:"createdAt" bson:"createdAt"`
}

// TeamProjectLink attaches a team to a project it contributes to.
type TeamProjectLink struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ProjectID string             `json:"projectId" bson:"projectId"`
	TeamID    string             `json:"teamId" bson:"teamId"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// ProjectDetail is the read model for a single project page.
type ProjectDetail struct {
	Project Project           `json:"project"`
	Teams   []TeamProjectLink `json:"teams"`
}

type Comment struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	TaskID    string             `json:"taskId" bson:"taskId"`
	Author    string             `json:"author" bson:"author"`
	Body      string             `json:"body" bson:"body"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}
