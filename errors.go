package timberline

import (
	"errors"
	"fmt"
)

// Errors reported by an ingestion run or by a snapshot reader.
// They are always returned wrapped with some context, use errors.Is to match them.
var (
	// ErrSourceFormat reports that an expected structural marker is missing from
	// a fetched page: no filing link on the manager page, no holdings table
	// marker on a filing page, or an unreadable holdings payload.
	ErrSourceFormat = errors.New("unexpected source format")

	// ErrSchemaNotFound reports that a holdings table lacks one of the required
	// columns.
	ErrSchemaNotFound = errors.New("holdings table schema not found")

	// ErrDataShape reports that a stored snapshot document is neither the
	// wrapped object form nor the bare array form.
	ErrDataShape = errors.New("invalid snapshot document")
)

// NetworkError reports a fetch that failed or returned a non success status.
type NetworkError struct {
	URL        string
	StatusCode int    // 0 when no response was received
	Status     string // e.g. "404 Not Found"
	Err        error  // nil when a response was received
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot http GET %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("cannot http GET %s: %s", e.URL, e.Status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError returns true if err is, or wraps, a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
