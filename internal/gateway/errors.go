package gateway

import (
	"errors"
	"fmt"
)

// AuthError indicates a missing or expired credential. It is returned when
// the backend answers 401 or no bearer token could be obtained.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("auth error: %s", e.Message)
	}
	return fmt.Sprintf("auth error (%d): %s", e.StatusCode, e.Message)
}

// FetchError reports a failed load of the notification list. The store keeps
// its previous contents when it sees one.
type FetchError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetching notifications: %s", e.Message)
	}
	return fmt.Sprintf("fetching notifications (%d): %s", e.StatusCode, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CommandError reports a failed mark or delete call. Local state is never
// changed by a command, so retrying the same intent is always safe.
type CommandError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *CommandError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Op, e.StatusCode, e.Message)
}

func (e *CommandError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsFetchError reports whether err (or any error in its chain) is a FetchError.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// IsCommandError reports whether err (or any error in its chain) is a
// CommandError.
func IsCommandError(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr)
}
