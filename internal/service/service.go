// Package service defines the backend-agnostic interface for sync operations.
package service

import "context"

// PendingLimit is the maximum number of pending tasks returned by one query.
const PendingLimit = 100

// Service defines the operations the shell can invoke on the sync engine.
// Commands only talk to this interface.
type Service interface {
	// RefreshViewer fetches the viewer and replaces the current snapshot.
	// On failure the previous snapshot is kept.
	RefreshViewer(ctx context.Context) (ViewerSnapshot, error)

	// Viewer returns the last successfully fetched snapshot.
	// The bool is false if no snapshot is available.
	Viewer() (ViewerSnapshot, bool)

	// AuthorizeURL returns the page where the user obtains an authorization code.
	AuthorizeURL() string

	// ExchangeAuthorizationCode trades an OAuth code for an access token,
	// stores it, and refreshes the viewer.
	ExchangeAuthorizationCode(ctx context.Context, code string) error

	// CreateTask creates a task from raw user input.
	// A leading "/todo" keeps it open; anything else completes it now.
	// Attachments are uploaded before the mutation is issued.
	CreateTask(ctx context.Context, rawInput string, files []LocalFile) (TaskMutationResult, error)

	// CompleteTask completes an existing task by ID, uploading attachments first.
	CompleteTask(ctx context.Context, taskID string, files []LocalFile) (TaskMutationResult, error)

	// ListPendingTasks returns up to PendingLimit open tasks matching filter,
	// in server order.
	ListPendingTasks(ctx context.Context, filter string) ([]PendingTask, error)

	// ResetAuth clears the access token and the viewer snapshot.
	ResetAuth() error

	// SetDevMode switches between the development and production origins.
	SetDevMode(enabled bool) error

	// Credentials returns the current credentials.
	Credentials() Credentials
}
