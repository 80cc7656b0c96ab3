package session

import "errors"

var (
	// ErrNotFound means no record exists for the requested session id.
	ErrNotFound = errors.New("session not found")

	// ErrCorruptData means a session record exists but cannot be parsed.
	ErrCorruptData = errors.New("session record corrupted")

	// ErrNoActiveSession means an operation requiring a current session was
	// invoked before one was installed.
	ErrNoActiveSession = errors.New("no active session")

	// ErrBackendInit means the backend handle could not be created. No
	// session can function without one, so startup code treats this as fatal.
	ErrBackendInit = errors.New("backend initialization failed")

	// ErrBackendRequest means a backend call failed; the session state is
	// left consistent and the operation can be retried.
	ErrBackendRequest = errors.New("backend request failed")
)
