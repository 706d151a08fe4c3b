package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthenticated is the cause of an AuthError raised because no token is stored.
var ErrUnauthenticated = errors.New("not logged in (run: wip login)")

// ErrEmptyBody is returned when task input has no text and no attachments.
var ErrEmptyBody = errors.New("task text is empty")

// ErrMissingID is returned when completing a task without an id.
var ErrMissingID = errors.New("task id is required")

// AuthError reports a missing or rejected access token.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth error"
	}
	return "auth error: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError reports an unreachable endpoint or a non-success HTTP status.
// Status is 0 when no response was received.
type NetworkError struct {
	Status int
	Body   string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("network error: %v", e.Err)
	}
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("network error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("network error: HTTP %d: %s", e.Status, body)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError reports a response that could not be decoded.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RemoteError carries the messages of a GraphQL "errors" array.
type RemoteError struct {
	Messages []string
}

func (e *RemoteError) Error() string {
	return "remote error: " + strings.Join(e.Messages, "; ")
}

// UploadError reports a failed attachment upload. Status is the HTTP status
// returned by the upload target, or 0 if the failure happened earlier.
type UploadError struct {
	File   string
	Status int
	Err    error
}

func (e *UploadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upload %s: invalid status code <%d>", e.File, e.Status)
	}
	return fmt.Sprintf("upload %s: %v", e.File, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// MutationError reports a failed create or complete mutation.
type MutationError struct {
	Op  string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// IsAuth reports whether err is, or wraps, an AuthError.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
