package fetchers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"

	"portal-project/backend/dashboard-service/logging"
	"portal-project/backend/dashboard-service/models"
)

const (
	trackerTimeout    = 15 * time.Second
	trackerBatchSize  = 5
	trackerBatchDelay = 200 * time.Millisecond

	// StatusUnknown is the status carried by placeholder records. Per-item
	// failures always produce a placeholder, never an omission, so rollup
	// counts stay consistent with the number of registered task links.
	StatusUnknown = "Unknown"
)

// TaskLocator pairs an external URL with the team/project it was registered
// under, so fetch results come back already annotated.
type TaskLocator struct {
	URL       string
	ProjectID string
	TeamID    string
}

// IssueTrackerClient fetches ticket state from the issue tracker's REST API.
// Requests run in batches of five with a short delay between batches to stay
// under the tracker's rate limits; batch boundaries only affect throughput.
type IssueTrackerClient struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	username   string
	token      string
	batchSize  int
	batchDelay time.Duration
}

// NewIssueTrackerClient builds a client with a static credential. When
// username is empty the token is sent as a bearer token via an oauth2
// static token source; otherwise basic auth with username/token is used.
func NewIssueTrackerClient(ctx context.Context, username, token string, breaker *gobreaker.CircuitBreaker) *IssueTrackerClient {
	var httpClient *http.Client
	if username == "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = trackerTimeout

	return &IssueTrackerClient{
		httpClient: httpClient,
		breaker:    breaker,
		username:   username,
		token:      token,
		batchSize:  trackerBatchSize,
		batchDelay: trackerBatchDelay,
	}
}

// FetchAll resolves every locator to a normalized record. The result always
// has the same length as the input; failed items become placeholders with
// FetchFailed set. Order within a batch is not meaningful, matching is by
// SourceURL.
func (c *IssueTrackerClient) FetchAll(ctx context.Context, locators []TaskLocator) []models.TaskRecord {
	records := make([]models.TaskRecord, len(locators))
	for start := 0; start < len(locators); start += c.batchSize {
		end := start + c.batchSize
		if end > len(locators) {
			end = len(locators)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				records[i] = c.fetchOne(ctx, locators[i])
			}(i)
		}
		wg.Wait()

		if end < len(locators) {
			select {
			case <-ctx.Done():
				for i := end; i < len(locators); i++ {
					records[i] = placeholderRecord(locators[i], models.SourceIssueTracker)
				}
				return records
			case <-time.After(c.batchDelay):
			}
		}
	}
	return records
}

type issuePayload struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		Priority struct {
			Name string `json:"name"`
		} `json:"priority"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		DueDate string `json:"duedate"`
		Updated string `json:"updated"`
	} `json:"fields"`
}

func (c *IssueTrackerClient) fetchOne(ctx context.Context, locator TaskLocator) models.TaskRecord {
	parsed, err := ParseIssueLocator(locator.URL)
	if err != nil {
		logging.Logger.Warnf("Event ID: INVALID_LOCATOR, Description: Skipping malformed tracker URL %s: %v", locator.URL, err)
		return placeholderRecord(locator, models.SourceIssueTracker)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.getIssue(ctx, parsed)
	})
	if err != nil {
		logging.Logger.Warnf("Event ID: TRACKER_FETCH_FAILED, Description: Failed to fetch issue %s: %v", parsed.Key, err)
		return placeholderRecord(locator, models.SourceIssueTracker)
	}
	payload := result.(*issuePayload)

	record := models.TaskRecord{
		TaskID:      payload.Key,
		ProjectID:   locator.ProjectID,
		TeamID:      locator.TeamID,
		SourceURL:   locator.URL,
		SourceType:  models.SourceIssueTracker,
		Status:      payload.Fields.Status.Name,
		Title:       payload.Fields.Summary,
		DueDate:     payload.Fields.DueDate,
		LastUpdated: payload.Fields.Updated,
	}
	if payload.Fields.Assignee != nil {
		record.Assignee = payload.Fields.Assignee.DisplayName
	}
	if payload.Fields.Priority.Name != "" {
		record.Extra = map[string]string{"priority": payload.Fields.Priority.Name}
	}
	return record
}

func (c *IssueTrackerClient) getIssue(ctx context.Context, locator IssueLocator) (*issuePayload, error) {
	requestURL := fmt.Sprintf(
		"%s/rest/api/2/issue/%s?fields=summary,status,priority,assignee,duedate,updated",
		locator.BaseURL, locator.Key,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request to tracker: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &LocatorError{URL: requestURL, Err: ErrSourceUnavailable}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &LocatorError{URL: requestURL, Err: ErrNoDataFound}
	case resp.StatusCode != http.StatusOK:
		return nil, &LocatorError{URL: requestURL, Err: fmt.Errorf("%w: tracker returned %d", ErrSourceUnavailable, resp.StatusCode)}
	}

	var payload issuePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode tracker response: %w", err)
	}
	return &payload, nil
}

func placeholderRecord(locator TaskLocator, sourceType models.SourceType) models.TaskRecord {
	return models.TaskRecord{
		ProjectID:   locator.ProjectID,
		TeamID:      locator.TeamID,
		SourceURL:   locator.URL,
		SourceType:  sourceType,
		Status:      StatusUnknown,
		FetchFailed: true,
	}
}
