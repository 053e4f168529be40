package fetchers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"portal-project/backend/dashboard-service/models"
)

func TestMapRowResolvesWellKnownColumns(t *testing.T) {
	headers := []string{"Task", "Status", "Assignee", "Start Date", "Due Date", "Last Updated", "Sprint", "Notes"}
	cells := []interface{}{"Build API", "In Progress", "Minh", "2025-06-01", "2025-06-30", "2025-06-20", "S12", "needs review"}

	record := mapRow(headers, cells)
	if record.Title != "Build API" {
		t.Errorf("Title = %q", record.Title)
	}
	if record.Status != "In Progress" {
		t.Errorf("Status = %q", record.Status)
	}
	if record.Assignee != "Minh" {
		t.Errorf("Assignee = %q", record.Assignee)
	}
	if record.StartDate != "2025-06-01" || record.DueDate != "2025-06-30" {
		t.Errorf("dates not mapped: %+v", record)
	}
	if record.LastUpdated != "2025-06-20" {
		t.Errorf("LastUpdated = %q", record.LastUpdated)
	}
	if record.Extra["sprint"] != "S12" || record.Extra["notes"] != "needs review" {
		t.Errorf("overflow columns not folded into extra: %v", record.Extra)
	}
}

func TestMapRowHeaderMatchingIsCaseInsensitive(t *testing.T) {
	headers := []string{"STATUS", "task NAME", "Owner"}
	cells := []interface{}{"Done", "Cleanup", "An"}

	record := mapRow(headers, cells)
	if record.Status != "Done" {
		t.Errorf("Status = %q", record.Status)
	}
	if record.Title != "Cleanup" {
		t.Errorf("Title = %q", record.Title)
	}
	if record.Assignee != "An" {
		t.Errorf("Assignee = %q", record.Assignee)
	}
}

func TestMapRowDefaultsAndShortRows(t *testing.T) {
	// More headers than cells, no status column value.
	headers := []string{"Task", "Status", "Assignee"}
	cells := []interface{}{"Only a title"}

	record := mapRow(headers, cells)
	if record.Title != "Only a title" {
		t.Errorf("Title = %q", record.Title)
	}
	if record.Status != StatusUnknown {
		t.Errorf("missing status should default to %q, got %q", StatusUnknown, record.Status)
	}
	if len(record.Extra) != 0 {
		t.Errorf("unexpected extras: %v", record.Extra)
	}
}

// fakeSheetsServer serves just enough of the Sheets API surface for the
// adapter: spreadsheet metadata and row reads.
func fakeSheetsServer(t *testing.T, rows map[int64][]interface{}) *httptest.Server {
	t.Helper()
	header := []interface{}{"Task", "Status", "Assignee"}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/values/"):
			readRange := r.URL.Path[strings.Index(r.URL.Path, "/values/")+len("/values/"):]
			var row int64
			if _, err := fmt.Sscanf(readRange, "Sheet1!%d:", &row); err != nil {
				t.Errorf("unexpected read range %q", readRange)
				http.NotFound(w, r)
				return
			}
			var values [][]interface{}
			if row == 1 {
				values = [][]interface{}{header}
			} else if cells, ok := rows[row]; ok {
				values = [][]interface{}{cells}
			}
			writeJSON(w, map[string]any{"range": readRange, "values": values})
		case strings.Contains(r.URL.Path, "/spreadsheets/"):
			writeJSON(w, map[string]any{
				"sheets": []map[string]any{
					{"properties": map[string]any{"title": "Sheet1"}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func writeJSON(w http.ResponseWriter, v any) {
	json.NewEncoder(w).Encode(v)
}

func TestSheetEmptyHeaderRowIsPlaceholderAndNotCached(t *testing.T) {
	var header []interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/values/"):
			readRange := r.URL.Path[strings.Index(r.URL.Path, "/values/")+len("/values/"):]
			var row int64
			if _, err := fmt.Sscanf(readRange, "Sheet1!%d:", &row); err != nil {
				http.NotFound(w, r)
				return
			}
			var values [][]interface{}
			if row == 1 {
				if len(header) > 0 {
					values = [][]interface{}{header}
				}
			} else {
				values = [][]interface{}{{"Build API", "In Progress"}}
			}
			writeJSON(w, map[string]any{"range": readRange, "values": values})
		case strings.Contains(r.URL.Path, "/spreadsheets/"):
			writeJSON(w, map[string]any{
				"sheets": []map[string]any{
					{"properties": map[string]any{"title": "Sheet1"}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := NewSheetClient(context.Background(), testBreaker(),
		option.WithEndpoint(server.URL+"/"), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewSheetClient failed: %v", err)
	}

	locators := []TaskLocator{
		{URL: "https://docs.google.com/spreadsheets/d/sheet-1/edit#range=3:3", ProjectID: "p1", TeamID: "t1"},
	}

	records := client.FetchAll(context.Background(), locators)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if !records[0].FetchFailed || records[0].Status != StatusUnknown {
		t.Errorf("expected placeholder for a sheet with an empty header row, got %+v", records[0])
	}

	// Once the sheet gains headers the next fetch must see them; an empty
	// header row must not stick in the per-spreadsheet cache.
	header = []interface{}{"Task", "Status"}
	records = client.FetchAll(context.Background(), locators)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].FetchFailed {
		t.Fatalf("expected fetch to recover after headers appeared, got %+v", records[0])
	}
	if records[0].Title != "Build API" || records[0].Status != "In Progress" {
		t.Errorf("row not mapped against the recovered headers: %+v", records[0])
	}
}

func TestSheetFetchAllNormalizesRows(t *testing.T) {
	server := fakeSheetsServer(t, map[int64][]interface{}{
		3: {"Build API", "In Progress", "Minh"},
		5: {"Write docs", "Done", "An"},
	})
	defer server.Close()

	client, err := NewSheetClient(context.Background(), testBreaker(),
		option.WithEndpoint(server.URL+"/"), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewSheetClient failed: %v", err)
	}

	base := "https://docs.google.com/spreadsheets/d/sheet-1/edit"
	locators := []TaskLocator{
		{URL: base + "#range=3:3", ProjectID: "p1", TeamID: "t2"},
		{URL: base + "#range=5:5", ProjectID: "p1", TeamID: "t2"},
		{URL: base + "#range=9:9", ProjectID: "p1", TeamID: "t2"}, // empty row
		{URL: base, ProjectID: "p1", TeamID: "t2"},                // no range
	}

	records := client.FetchAll(context.Background(), locators)
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}

	byURL := make(map[string]models.TaskRecord)
	for _, record := range records {
		byURL[record.SourceURL] = record
	}

	if record := byURL[locators[0].URL]; record.Title != "Build API" || record.Status != "In Progress" {
		t.Errorf("row 3 not normalized: %+v", record)
	}
	if record := byURL[locators[1].URL]; record.Status != "Done" || record.Assignee != "An" {
		t.Errorf("row 5 not normalized: %+v", record)
	}
	for _, i := range []int{2, 3} {
		if record := byURL[locators[i].URL]; !record.FetchFailed || record.Status != StatusUnknown {
			t.Errorf("locator %d: expected placeholder, got %+v", i, record)
		}
	}
	for _, record := range records {
		if record.SourceType != models.SourceSpreadsheetRow {
			t.Errorf("wrong source type: %+v", record)
		}
		if record.ProjectID != "p1" || record.TeamID != "t2" {
			t.Errorf("identity annotation lost: %+v", record)
		}
	}
}
