// Package service defines the backend-agnostic interface for sync operations.
package service

import "time"

// EndpointMode selects which remote origin all calls go to.
type EndpointMode int

const (
	// Production targets the public origin.
	Production EndpointMode = iota
	// Development targets the local test origin.
	Development
)

func (m EndpointMode) String() string {
	switch m {
	case Production:
		return "production"
	case Development:
		return "development"
	default:
		return "unknown"
	}
}

// Credentials is the current access token and endpoint mode.
// An empty AccessToken means unauthenticated.
type Credentials struct {
	AccessToken string       `json:"access_token,omitempty"`
	Mode        EndpointMode `json:"mode"`
}

// HasToken reports whether an access token is present.
func (c Credentials) HasToken() bool {
	return c.AccessToken != ""
}

// Product is one of the viewer's products.
type Product struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ViewerSnapshot is the authenticated user's profile and streak summary.
type ViewerSnapshot struct {
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	CurrentStreak  int       `json:"current_streak"`
	BestStreak     int       `json:"best_streak"`
	CompletedTodos int       `json:"completed_todos"`
	Streaking      bool      `json:"streaking"`
	Products       []Product `json:"products"`
}

// PendingTask is an incomplete task returned by the pending query.
type PendingTask struct {
	ID   string
	Body string
}

// FormField is a single name/value pair whose position is significant.
type FormField struct {
	Name  string
	Value string
}

// UploadTarget is a single-use presigned upload destination.
type UploadTarget struct {
	URL     string
	Fields  []FormField // in the order the remote returned them
	Method  string
	Headers []FormField
}

// Field returns the value of the named form field.
func (t UploadTarget) Field(name string) (string, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// AttachmentRef is the durable reference to an uploaded file.
type AttachmentRef struct {
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	Filename string `json:"filename"`
}

// LocalFile is a file on disk the caller wants attached to a task.
type LocalFile struct {
	Path string
	Name string
	Size int64
}

// TaskMutationResult is what the remote returns for create/complete.
type TaskMutationResult struct {
	ID          string
	CompletedAt *time.Time // nil when the task is still open
}
