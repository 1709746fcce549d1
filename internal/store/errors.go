package store

import (
	"fmt"
	"strconv"
)

// divergedError is the sentinel spec.md §4.2 calls Diverged: a disallowed
// ZADD option combination supplied by the client, which the handler must
// surface as an error response, not panic on.
type divergedError struct{ reason string }

func (e divergedError) Error() string { return fmt.Sprintf("diverged: %s", e.reason) }

// ErrDiverged constructs the Diverged sentinel error.
func ErrDiverged(reason string) error { return divergedError{reason: reason} }

// IsDiverged reports whether err is the Diverged sentinel.
func IsDiverged(err error) bool {
	_, ok := err.(divergedError)
	return ok
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
