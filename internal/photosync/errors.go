package photosync

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSession is returned when navigation is attempted before any
	// viewing session has been started or reconciled for the meetup.
	ErrNoActiveSession = errors.New("no active session")

	// ErrUnknownSession is returned by EventLog implementations when an append
	// targets a session that was never created. The event is rejected, not
	// buffered, and the append is not retried.
	ErrUnknownSession = errors.New("unknown session")
)

// ValidationError reports a locally rejected navigation: out-of-range index
// or malformed event shape. It is never persisted or broadcast.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
