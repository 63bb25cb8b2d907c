package attendance

import "errors"

// Attendance domain errors
var (
	// Guard violations: surfaced synchronously, never queued.
	ErrAlreadyFinalized  = errors.New("attendance for today is already finalized")
	ErrTooEarlyToClockIn = errors.New("too early to clock in")
	ErrClockInInProgress = errors.New("another clock-in is already in progress")
	ErrNoActiveSession   = errors.New("no active attendance session")
	ErrBreakLimitReached = errors.New("break limit for today reached")
	ErrLunchAlreadyTaken = errors.New("lunch has already been registered")
	ErrNotWorking        = errors.New("action not allowed in the current state")

	// Remote store errors
	ErrSessionNotFound = errors.New("attendance session not found")
	ErrSessionExists   = errors.New("an open attendance session already exists for this day")
)
