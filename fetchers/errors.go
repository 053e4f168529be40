package fetchers

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLocator marks a URL that does not match the expected shape
	// for its adapter. Per-item; never aborts a batch.
	ErrInvalidLocator = errors.New("invalid locator")

	// ErrSourceUnavailable marks a network, auth or timeout failure reaching
	// the external system.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNoDataFound marks a well-formed locator that resolved to no record,
	// such as a deleted ticket or an empty spreadsheet row.
	ErrNoDataFound = errors.New("no data found")
)

// LocatorError attaches the offending URL to one of the sentinel errors.
type LocatorError struct {
	URL string
	Err error
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("locator %s: %v", e.URL, e.Err)
}

func (e *LocatorError) Unwrap() error {
	return e.Err
}
