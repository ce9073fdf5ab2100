package domain

import "github.com/pkg/errors"

var (
	// ErrInvalidScore is returned when a score falls outside [0,100].
	ErrInvalidScore = errors.New("score must be between 0 and 100")
	// ErrInvalidSubmission wraps field validation failures other than the score range.
	ErrInvalidSubmission = errors.New("invalid score submission")
	// ErrOffline indicates the remote store is not reachable.
	ErrOffline = errors.New("remote store unreachable")
	// ErrNoCache is returned when a remote read fails and nothing is cached locally.
	ErrNoCache = errors.New("no cached data available")
	// ErrClassNotFound is returned when no class matches an id or join code.
	ErrClassNotFound = errors.New("class not found")
	// ErrClassCodeTaken is returned when a new class reuses an active class code.
	ErrClassCodeTaken = errors.New("class code already in use")
	// ErrInvalidClass wraps validation failures on class creation.
	ErrInvalidClass = errors.New("invalid class")
	// ErrUserNotFound is returned when a profile lookup misses.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotAuthenticated is returned by operations that need a logged-in user.
	ErrNotAuthenticated = errors.New("user not authenticated")
	// ErrEmptyMessage is returned when a chat message has no text.
	ErrEmptyMessage = errors.New("message text is empty")
)
