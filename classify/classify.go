// Package classify holds the single shared policy that decides what a raw
// status label counts as and how a set of tasks maps to a percentage.
// Every consumer goes through this package so rollups never diverge.
package classify

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"portal-project/backend/dashboard-service/models"
)

type Kind int

const (
	KindOther Kind = iota
	KindDone
	KindInProgress
)

// Rules is the status taxonomy. Done/InProgress match when the trimmed,
// lower-cased label contains the marker; InProgressExact requires equality.
type Rules struct {
	Done            []string `yaml:"done"`
	InProgress      []string `yaml:"inProgress"`
	InProgressExact []string `yaml:"inProgressExact"`
}

// DefaultRules returns the built-in taxonomy.
func DefaultRules() *Rules {
	return &Rules{
		Done:            []string{"done", "completed", "complete", "closed", "resolved"},
		InProgress:      []string{"progress", "developing"},
		InProgressExact: []string{"in review"},
	}
}

// LoadRules reads a taxonomy override from a YAML file. Empty sections fall
// back to the defaults so a file can override just one list.
func LoadRules(path string) (*Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read status rules file %s: %w", path, err)
	}
	rules := &Rules{}
	if err := yaml.Unmarshal(raw, rules); err != nil {
		return nil, fmt.Errorf("failed to parse status rules file %s: %w", path, err)
	}
	defaults := DefaultRules()
	if len(rules.Done) == 0 {
		rules.Done = defaults.Done
	}
	if len(rules.InProgress) == 0 {
		rules.InProgress = defaults.InProgress
	}
	if len(rules.InProgressExact) == 0 {
		rules.InProgressExact = defaults.InProgressExact
	}
	return rules, nil
}

// Classify maps a raw status label onto the taxonomy.
func (r *Rules) Classify(status string) Kind {
	label := strings.ToLower(strings.TrimSpace(status))
	for _, marker := range r.Done {
		if strings.Contains(label, marker) {
			return KindDone
		}
	}
	for _, marker := range r.InProgress {
		if strings.Contains(label, marker) {
			return KindInProgress
		}
	}
	for _, marker := range r.InProgressExact {
		if label == marker {
			return KindInProgress
		}
	}
	return KindOther
}

func (r *Rules) IsDone(status string) bool {
	return r.Classify(status) == KindDone
}

// Percent maps done/total onto a 0-100 integer. Callers must not pass
// total == 0; empty sets have no defined progress.
func Percent(done, total int) int {
	return int(math.Round(float64(done) / float64(total) * 100))
}

// Summary is the shared reduction over a set of task records.
type Summary struct {
	TotalTasks       int
	DoneTasks        int
	InProgressTasks  int
	OtherStatusTasks int
	Progress         int
	StatusBreakdown  map[string]int
}

// Summarize reduces a task set to counts and a percentage. Returns nil for
// an empty set so callers can distinguish "no tasks" from "0% done".
func (r *Rules) Summarize(tasks []models.TaskRecord) *Summary {
	if len(tasks) == 0 {
		return nil
	}
	summary := &Summary{
		TotalTasks:      len(tasks),
		StatusBreakdown: make(map[string]int),
	}
	for _, task := range tasks {
		summary.StatusBreakdown[task.Status]++
		switch r.Classify(task.Status) {
		case KindDone:
			summary.DoneTasks++
		case KindInProgress:
			summary.InProgressTasks++
		default:
			summary.OtherStatusTasks++
		}
	}
	summary.Progress = Percent(summary.DoneTasks, summary.TotalTasks)
	return summary
}

// ProjectStatusFor infers the date-aware project status. This is layered on
// top of the raw task percentage, not derived from it: an empty project is
// Planning regardless of dates, a fully done project is Completed even when
// past its end date.
func ProjectStatusFor(totalTasks, doneTasks int, endDate, now time.Time) models.ProjectStatus {
	switch {
	case totalTasks == 0:
		return models.ProjectPlanning
	case doneTasks == totalTasks:
		return models.ProjectCompleted
	case !endDate.IsZero() && now.After(endDate):
		return models.ProjectOverdue
	default:
		return models.ProjectInProgress
	}
}
