// Package history persists completed sessions and the user directory in
// a local SQLite database.
package history

import (
	"errors"
	"time"
)

// Sentinel errors at the persistence boundary.
var (
	// ErrPersistenceFailure means a write against the store failed or
	// reported an inconsistent affected-row count. Non-fatal for the
	// caller: the in-memory summary is still shown.
	ErrPersistenceFailure = errors.New("history store write failed")

	// ErrNoUsersFound means the user directory is empty.
	ErrNoUsersFound = errors.New("no users found")

	// ErrNoSelectedUsers means users exist but none is selected to
	// participate.
	ErrNoSelectedUsers = errors.New("no selected users found")
)

// User is one entry of the user directory. Selected users participate
// in sessions and get a record attributed on completion.
type User struct {
	ID       string
	Name     string
	Selected bool
}

// Record is one completed session attributed to one user. DurationMs is
// the actually exercised duration, which is less than the planned
// session length when the session was aborted.
type Record struct {
	ID         string
	UserID     string
	Timestamp  time.Time
	DurationMs int64
}
