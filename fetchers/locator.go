package fetchers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// IssueLocator is the parsed form of one issue-tracker ticket URL.
type IssueLocator struct {
	BaseURL string // scheme://host of the tracker instance
	Key     string // e.g. PROJ-123
}

// ParseIssueLocator accepts {host}/browse/{KEY} and {host}/issues/{KEY}
// ticket URLs.
func ParseIssueLocator(raw string) (IssueLocator, error) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return IssueLocator{}, &LocatorError{URL: raw, Err: ErrInvalidLocator}
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == "browse" || segments[i] == "issues" {
			key := segments[i+1]
			if key == "" {
				break
			}
			return IssueLocator{
				BaseURL: fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host),
				Key:     key,
			}, nil
		}
	}
	return IssueLocator{}, &LocatorError{URL: raw, Err: ErrInvalidLocator}
}

// SheetLocator is the parsed form of one row-scoped spreadsheet URL.
type SheetLocator struct {
	SpreadsheetID string
	Row           int64
}

// ParseSheetLocator extracts the spreadsheet id from the /d/{id} path
// segment and the row number from a range= parameter in the fragment or
// query. Accepted range formats: "3:3", "A3:F3" and bare "3".
func ParseSheetLocator(raw string) (SheetLocator, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return SheetLocator{}, &LocatorError{URL: raw, Err: ErrInvalidLocator}
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	var spreadsheetID string
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == "d" {
			spreadsheetID = segments[i+1]
			break
		}
	}
	if spreadsheetID == "" {
		return SheetLocator{}, &LocatorError{URL: raw, Err: ErrInvalidLocator}
	}

	rangeValue := rangeParam(parsed)
	if rangeValue == "" {
		return SheetLocator{}, &LocatorError{URL: raw, Err: ErrInvalidLocator}
	}
	row, err := parseRowFromRange(rangeValue)
	if err != nil {
		return SheetLocator{}, &LocatorError{URL: raw, Err: ErrInvalidLocator}
	}
	return SheetLocator{SpreadsheetID: spreadsheetID, Row: row}, nil
}

// rangeParam looks for range= in the fragment first (the share-link form),
// then in the query string.
func rangeParam(parsed *url.URL) string {
	if fragment, err := url.ParseQuery(parsed.Fragment); err == nil {
		if v := fragment.Get("range"); v != "" {
			return v
		}
	}
	return parsed.Query().Get("range")
}

func parseRowFromRange(value string) (int64, error) {
	cell := value
	if idx := strings.Index(value, ":"); idx >= 0 {
		cell = value[:idx]
	}
	digits := strings.TrimLeftFunc(strings.TrimSpace(cell), func(r rune) bool {
		return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
	})
	row, err := strconv.ParseInt(strings.TrimSpace(digits), 10, 64)
	if err != nil || row < 1 {
		return 0, ErrInvalidLocator
	}
	return row, nil
}
