package fetchers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sony/gobreaker"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"portal-project/backend/dashboard-service/logging"
	"portal-project/backend/dashboard-service/models"
)

const sheetConcurrency = 5

// wellKnownColumns maps lower-cased header labels onto the fixed record
// fields. Anything not listed here is folded into the Extra map, so the
// adapter works with whatever columns a team's sheet happens to have.
var wellKnownColumns = map[string]string{
	"status":       "status",
	"state":        "status",
	"title":        "title",
	"task":         "title",
	"task name":    "title",
	"name":         "title",
	"summary":      "title",
	"assignee":     "assignee",
	"owner":        "assignee",
	"pic":          "assignee",
	"assigned to":  "assignee",
	"start date":   "startDate",
	"start":        "startDate",
	"due date":     "dueDate",
	"due":          "dueDate",
	"deadline":     "dueDate",
	"end date":     "dueDate",
	"last updated": "lastUpdated",
	"updated":      "lastUpdated",
	"last update":  "lastUpdated",
}

// SheetClient fetches task rows from Google Sheets. The first tab name and
// the header row of each spreadsheet are resolved once and reused across
// the rows of one refresh.
type SheetClient struct {
	srv     *sheets.Service
	breaker *gobreaker.CircuitBreaker

	mu       sync.Mutex
	tabNames map[string]string
	headers  map[string][]string
}

// NewSheetClient builds a Sheets API client. Pass option.WithAPIKey for
// public sheets or option.WithCredentialsFile for a service account.
func NewSheetClient(ctx context.Context, breaker *gobreaker.CircuitBreaker, opts ...option.ClientOption) (*SheetClient, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}
	return &SheetClient{
		srv:      srv,
		breaker:  breaker,
		tabNames: make(map[string]string),
		headers:  make(map[string][]string),
	}, nil
}

// FetchAll resolves every row locator to a normalized record. Locators are
// fanned out with a fixed concurrency cap; the result always has the same
// length as the input, with placeholders for failed items.
func (c *SheetClient) FetchAll(ctx context.Context, locators []TaskLocator) []models.TaskRecord {
	records := make([]models.TaskRecord, len(locators))
	slots := make(chan struct{}, sheetConcurrency)
	var wg sync.WaitGroup
	for i := range locators {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()
			records[i] = c.fetchOne(ctx, locators[i])
		}(i)
	}
	wg.Wait()
	return records
}

func (c *SheetClient) fetchOne(ctx context.Context, locator TaskLocator) models.TaskRecord {
	parsed, err := ParseSheetLocator(locator.URL)
	if err != nil {
		logging.Logger.Warnf("Event ID: INVALID_LOCATOR, Description: Skipping malformed sheet URL %s: %v", locator.URL, err)
		return placeholderRecord(locator, models.SourceSpreadsheetRow)
	}

	tab, err := c.tabName(ctx, parsed.SpreadsheetID)
	if err != nil {
		logging.Logger.Warnf("Event ID: SHEET_FETCH_FAILED, Description: Failed to resolve tab for spreadsheet %s: %v", parsed.SpreadsheetID, err)
		return placeholderRecord(locator, models.SourceSpreadsheetRow)
	}
	headers, err := c.headerRow(ctx, parsed.SpreadsheetID, tab)
	if err != nil {
		logging.Logger.Warnf("Event ID: SHEET_FETCH_FAILED, Description: Failed to fetch header row of spreadsheet %s: %v", parsed.SpreadsheetID, err)
		return placeholderRecord(locator, models.SourceSpreadsheetRow)
	}

	cells, err := c.dataRow(ctx, parsed.SpreadsheetID, tab, parsed.Row)
	if err != nil {
		logging.Logger.Warnf("Event ID: SHEET_FETCH_FAILED, Description: Failed to fetch row %d of spreadsheet %s: %v", parsed.Row, parsed.SpreadsheetID, err)
		return placeholderRecord(locator, models.SourceSpreadsheetRow)
	}
	if len(cells) == 0 {
		logging.Logger.Warnf("Event ID: SHEET_ROW_EMPTY, Description: Row %d of spreadsheet %s has no data", parsed.Row, parsed.SpreadsheetID)
		return placeholderRecord(locator, models.SourceSpreadsheetRow)
	}

	record := mapRow(headers, cells)
	record.TaskID = fmt.Sprintf("%s:%d", parsed.SpreadsheetID, parsed.Row)
	record.ProjectID = locator.ProjectID
	record.TeamID = locator.TeamID
	record.SourceURL = locator.URL
	record.SourceType = models.SourceSpreadsheetRow
	return record
}

// mapRow zips lower-cased header labels to cell values. Well-known columns
// land on the typed fields, the remainder goes into Extra.
func mapRow(headers []string, cells []interface{}) models.TaskRecord {
	record := models.TaskRecord{Status: StatusUnknown}
	for i, header := range headers {
		if i >= len(cells) {
			break
		}
		label := strings.ToLower(strings.TrimSpace(header))
		if label == "" {
			continue
		}
		value := cellString(cells[i])
		switch wellKnownColumns[label] {
		case "status":
			if value != "" {
				record.Status = value
			}
		case "title":
			record.Title = value
		case "assignee":
			record.Assignee = value
		case "startDate":
			record.StartDate = value
		case "dueDate":
			record.DueDate = value
		case "lastUpdated":
			record.LastUpdated = value
		default:
			if value != "" {
				if record.Extra == nil {
					record.Extra = make(map[string]string)
				}
				record.Extra[label] = value
			}
		}
	}
	return record
}

func cellString(cell interface{}) string {
	if cell == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", cell))
}

func (c *SheetClient) tabName(ctx context.Context, spreadsheetID string) (string, error) {
	c.mu.Lock()
	if tab, ok := c.tabNames[spreadsheetID]; ok {
		c.mu.Unlock()
		return tab, nil
	}
	c.mu.Unlock()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.srv.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	})
	if err != nil {
		return "", &LocatorError{URL: spreadsheetID, Err: ErrSourceUnavailable}
	}
	spreadsheet := result.(*sheets.Spreadsheet)
	if len(spreadsheet.Sheets) == 0 || spreadsheet.Sheets[0].Properties == nil {
		return "", &LocatorError{URL: spreadsheetID, Err: ErrNoDataFound}
	}
	tab := spreadsheet.Sheets[0].Properties.Title

	c.mu.Lock()
	c.tabNames[spreadsheetID] = tab
	c.mu.Unlock()
	return tab, nil
}

func (c *SheetClient) headerRow(ctx context.Context, spreadsheetID, tab string) ([]string, error) {
	c.mu.Lock()
	if headers, ok := c.headers[spreadsheetID]; ok {
		c.mu.Unlock()
		return headers, nil
	}
	c.mu.Unlock()

	cells, err := c.rowValues(ctx, spreadsheetID, tab, 1)
	if err != nil {
		return nil, err
	}
	// An empty header row makes every data row unmappable; fail the item
	// instead of caching an empty header set.
	if len(cells) == 0 {
		return nil, &LocatorError{URL: spreadsheetID, Err: ErrNoDataFound}
	}
	headers := make([]string, len(cells))
	for i, cell := range cells {
		headers[i] = cellString(cell)
	}

	c.mu.Lock()
	c.headers[spreadsheetID] = headers
	c.mu.Unlock()
	return headers, nil
}

func (c *SheetClient) dataRow(ctx context.Context, spreadsheetID, tab string, row int64) ([]interface{}, error) {
	return c.rowValues(ctx, spreadsheetID, tab, row)
}

func (c *SheetClient) rowValues(ctx context.Context, spreadsheetID, tab string, row int64) ([]interface{}, error) {
	readRange := fmt.Sprintf("%s!%d:%d", tab, row, row)
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.srv.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	})
	if err != nil {
		return nil, &LocatorError{URL: spreadsheetID, Err: ErrSourceUnavailable}
	}
	values := result.(*sheets.ValueRange)
	if len(values.Values) == 0 {
		return nil, nil
	}
	return values.Values[0], nil
}
