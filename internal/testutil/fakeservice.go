// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"wip/internal/service"
)

// ErrNotFound is returned when a task id is unknown.
var ErrNotFound = errors.New("not found")

// CreateCall records one CreateTask invocation.
type CreateCall struct {
	Input string
	Files []service.LocalFile
}

// CompleteCall records one CompleteTask invocation.
type CompleteCall struct {
	ID    string
	Files []service.LocalFile
}

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu      sync.RWMutex
	creds   service.Credentials
	viewer  *service.ViewerSnapshot
	pending []service.PendingTask
	nextID  int

	// Remote is what RefreshViewer and ExchangeAuthorizationCode fetch.
	Remote service.ViewerSnapshot
	// Now stamps completed tasks. Nil means time.Now.
	Now func() time.Time
	// ValidCode is the only authorization code accepted; empty accepts any.
	ValidCode string

	Creates   []CreateCall
	Completes []CompleteCall
	Filters   []string
	Refreshes int

	// Error injection for testing
	RefreshErr  error
	ExchangeErr error
	CreateErr   error
	CompleteErr error
	ListErr     error
	ResetErr    error
	DevModeErr  error
}

// NewFakeService creates an authenticated FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		creds:  service.Credentials{AccessToken: "test-token"},
		nextID: 100,
		Remote: service.ViewerSnapshot{Username: "marc", FirstName: "Marc", CurrentStreak: 4, BestStreak: 12},
	}
}

// SetToken replaces the stored access token. An empty token logs out.
func (f *FakeService) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds.AccessToken = token
}

// SetViewer seeds the last fetched snapshot.
func (f *FakeService) SetViewer(snap service.ViewerSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewer = &snap
}

// AddTask appends a pending task in server order.
func (f *FakeService) AddTask(id, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, service.PendingTask{ID: id, Body: body})
}

// Pending returns the pending tasks.
func (f *FakeService) Pending() []service.PendingTask {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.PendingTask(nil), f.pending...)
}

func (f *FakeService) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// RefreshViewer implements service.Service.
func (f *FakeService) RefreshViewer(ctx context.Context) (service.ViewerSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Refreshes++
	if !f.creds.HasToken() {
		return service.ViewerSnapshot{}, &service.AuthError{Err: service.ErrUnauthenticated}
	}
	if f.RefreshErr != nil {
		return service.ViewerSnapshot{}, f.RefreshErr
	}
	snap := f.Remote
	f.viewer = &snap
	return snap, nil
}

// Viewer implements service.Service.
func (f *FakeService) Viewer() (service.ViewerSnapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.viewer == nil {
		return service.ViewerSnapshot{}, false
	}
	return *f.viewer, true
}

// AuthorizeURL implements service.Service.
func (f *FakeService) AuthorizeURL() string {
	return "https://wip.chat/oauth/authorize?client_id=test"
}

// ExchangeAuthorizationCode implements service.Service.
func (f *FakeService) ExchangeAuthorizationCode(ctx context.Context, code string) error {
	if f.ExchangeErr != nil {
		return f.ExchangeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if code == "" || (f.ValidCode != "" && code != f.ValidCode) {
		return &service.AuthError{Err: errors.New("invalid authorization code")}
	}
	f.creds.AccessToken = "token-for-" + code
	snap := f.Remote
	f.viewer = &snap
	return nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, rawInput string, files []service.LocalFile) (service.TaskMutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Creates = append(f.Creates, CreateCall{Input: rawInput, Files: files})
	if !f.creds.HasToken() {
		return service.TaskMutationResult{}, &service.AuthError{Err: service.ErrUnauthenticated}
	}
	if f.CreateErr != nil {
		return service.TaskMutationResult{}, f.CreateErr
	}

	body := strings.TrimSpace(rawInput)
	lower := strings.ToLower(body)
	open := lower == "/todo" || strings.HasPrefix(lower, "/todo ")
	if open {
		body = strings.TrimSpace(body[len("/todo"):])
	}
	if body == "" && len(files) == 0 {
		return service.TaskMutationResult{}, service.ErrEmptyBody
	}

	f.nextID++
	result := service.TaskMutationResult{ID: strconv.Itoa(f.nextID)}
	if open {
		f.pending = append(f.pending, service.PendingTask{ID: result.ID, Body: body})
	} else {
		at := f.now()
		result.CompletedAt = &at
	}
	return result, nil
}

// CompleteTask implements service.Service.
func (f *FakeService) CompleteTask(ctx context.Context, taskID string, files []service.LocalFile) (service.TaskMutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Completes = append(f.Completes, CompleteCall{ID: taskID, Files: files})
	if f.CompleteErr != nil {
		return service.TaskMutationResult{}, f.CompleteErr
	}
	if taskID == "" {
		return service.TaskMutationResult{}, service.ErrMissingID
	}

	for i, t := range f.pending {
		if t.ID == taskID {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			at := f.now()
			return service.TaskMutationResult{ID: taskID, CompletedAt: &at}, nil
		}
	}
	return service.TaskMutationResult{}, &service.MutationError{Op: "complete task", Err: ErrNotFound}
}

// ListPendingTasks implements service.Service.
func (f *FakeService) ListPendingTasks(ctx context.Context, filter string) ([]service.PendingTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	filter = strings.TrimSpace(filter)
	f.Filters = append(f.Filters, filter)
	if !f.creds.HasToken() {
		return nil, &service.AuthError{Err: service.ErrUnauthenticated}
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}

	var result []service.PendingTask
	for _, t := range f.pending {
		if filter != "" && !strings.Contains(strings.ToLower(t.Body), strings.ToLower(filter)) {
			continue
		}
		result = append(result, t)
		if len(result) == service.PendingLimit {
			break
		}
	}
	return result, nil
}

// ResetAuth implements service.Service.
func (f *FakeService) ResetAuth() error {
	if f.ResetErr != nil {
		return f.ResetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds.AccessToken = ""
	f.viewer = nil
	return nil
}

// SetDevMode implements service.Service.
func (f *FakeService) SetDevMode(enabled bool) error {
	if f.DevModeErr != nil {
		return f.DevModeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if enabled {
		f.creds.Mode = service.Development
	} else {
		f.creds.Mode = service.Production
	}
	return nil
}

// Credentials implements service.Service.
func (f *FakeService) Credentials() service.Credentials {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.creds
}

// RefreshCount returns how many times RefreshViewer was called.
func (f *FakeService) RefreshCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.Refreshes
}
