// Package engine coordinates viewer refresh, authorization and task mutations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"wip/internal/service"
)

// API is the subset of the remote client the engine drives.
type API interface {
	Viewer(ctx context.Context) (service.ViewerSnapshot, error)
	PendingTodos(ctx context.Context, filter string) ([]service.PendingTask, error)
	CreateTodo(ctx context.Context, body string, completedAt *time.Time, attachments []service.AttachmentRef) (service.TaskMutationResult, error)
	CompleteTodo(ctx context.Context, id string, attachments []service.AttachmentRef) (service.TaskMutationResult, error)
	AuthorizeURL() string
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// Uploader turns local files into attachment references.
type Uploader interface {
	Upload(ctx context.Context, files []service.LocalFile) ([]service.AttachmentRef, error)
}

// CredentialStore is the single update path for credentials.
type CredentialStore interface {
	Get() service.Credentials
	SetToken(token string) error
	SetMode(mode service.EndpointMode) error
	Reset() error
}

// SnapshotStore persists the last good viewer snapshot.
type SnapshotStore interface {
	LoadViewer() (service.ViewerSnapshot, bool, error)
	SaveViewer(service.ViewerSnapshot) error
	ClearViewer() error
}

// Engine implements service.Service.
type Engine struct {
	api       API
	uploader  Uploader
	creds     CredentialStore
	snapshots SnapshotStore
	logger    *slog.Logger
	now       func() time.Time
	onSignal  func(Signal)

	refresh singleflight.Group
	tasks   keyedMutex

	mu      sync.RWMutex
	snap    service.ViewerSnapshot
	hasSnap bool
	// gen is bumped by ResetAuth so that a refresh started before the
	// reset cannot restore the cleared snapshot.
	gen uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithSnapshotStore persists snapshots and seeds the engine from the saved one.
func WithSnapshotStore(s SnapshotStore) Option {
	return func(e *Engine) { e.snapshots = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the time source used for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// OnSignal registers the observer that receives engine signals.
// It is called synchronously and must not block.
func OnSignal(fn func(Signal)) Option {
	return func(e *Engine) { e.onSignal = fn }
}

// New creates an engine.
func New(api API, uploader Uploader, creds CredentialStore, opts ...Option) *Engine {
	e := &Engine{
		api:      api,
		uploader: uploader,
		creds:    creds,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.snapshots != nil {
		snap, ok, err := e.snapshots.LoadViewer()
		if err != nil {
			e.logger.Warn("engine: ignoring saved viewer", "err", err)
		} else if ok {
			e.snap, e.hasSnap = snap, true
		}
	}
	return e
}

var _ service.Service = (*Engine)(nil)

func (e *Engine) emit(s Signal) {
	if e.onSignal != nil {
		e.onSignal(s)
	}
}

// Credentials returns the current credentials.
func (e *Engine) Credentials() service.Credentials {
	return e.creds.Get()
}

// Viewer returns the last good snapshot.
func (e *Engine) Viewer() (service.ViewerSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap, e.hasSnap
}

// RefreshViewer fetches the viewer and replaces the snapshot. Concurrent
// callers share one request. On failure the previous snapshot is kept.
func (e *Engine) RefreshViewer(ctx context.Context) (service.ViewerSnapshot, error) {
	if !e.creds.Get().HasToken() {
		err := &service.AuthError{Err: service.ErrUnauthenticated}
		e.emit(Signal{Kind: RefreshFailed, Err: err})
		return service.ViewerSnapshot{}, err
	}

	v, err, shared := e.refresh.Do("viewer", func() (any, error) {
		return e.doRefresh(ctx)
	})
	if shared {
		e.logger.Debug("engine: refresh shared with in-flight request")
	}
	if err != nil {
		return service.ViewerSnapshot{}, err
	}
	return v.(service.ViewerSnapshot), nil
}

func (e *Engine) doRefresh(ctx context.Context) (service.ViewerSnapshot, error) {
	e.mu.RLock()
	gen := e.gen
	e.mu.RUnlock()

	snap, err := e.api.Viewer(ctx)
	if err != nil {
		e.logger.Warn("engine: refresh failed", "err", err)
		e.emit(Signal{Kind: RefreshFailed, Err: err})
		return service.ViewerSnapshot{}, err
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		err := &service.AuthError{Err: errors.New("credentials reset during refresh")}
		e.emit(Signal{Kind: RefreshFailed, Err: err})
		return service.ViewerSnapshot{}, err
	}
	e.snap, e.hasSnap = snap, true
	e.mu.Unlock()

	if e.snapshots != nil {
		if err := e.snapshots.SaveViewer(snap); err != nil {
			e.logger.Warn("engine: could not save viewer", "err", err)
		}
	}

	e.logger.Info("engine: refreshed", "user", snap.Username, "streak", snap.CurrentStreak)
	e.emit(Signal{Kind: Refreshed, Snapshot: &snap})
	return snap, nil
}

// AuthorizeURL returns the page where the user obtains an authorization code.
func (e *Engine) AuthorizeURL() string {
	return e.api.AuthorizeURL()
}

// ExchangeAuthorizationCode trades code for a token, stores it and refreshes
// the viewer. Credentials are unchanged if the exchange fails. A failed
// refresh after a successful exchange is reported through signals only.
func (e *Engine) ExchangeAuthorizationCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		err := &service.AuthError{Err: errors.New("authorization code is empty")}
		e.emit(Signal{Kind: AuthExchanged, Err: err})
		return err
	}

	token, err := e.api.ExchangeCode(ctx, code)
	if err != nil {
		e.logger.Warn("engine: code exchange failed", "err", err)
		e.emit(Signal{Kind: AuthExchanged, Err: err})
		return err
	}
	if err := e.creds.SetToken(token); err != nil {
		err = fmt.Errorf("save credentials: %w", err)
		e.emit(Signal{Kind: AuthExchanged, Err: err})
		return err
	}

	e.logger.Info("engine: authorization code exchanged")
	e.emit(Signal{Kind: AuthExchanged})

	if _, err := e.RefreshViewer(ctx); err != nil {
		e.logger.Warn("engine: refresh after login failed", "err", err)
	}
	return nil
}

// CreateTask creates a task from raw input after uploading files.
func (e *Engine) CreateTask(ctx context.Context, rawInput string, files []service.LocalFile) (service.TaskMutationResult, error) {
	entry := ParseEntry(rawInput)
	if entry.Body == "" && len(files) == 0 {
		return service.TaskMutationResult{}, service.ErrEmptyBody
	}

	var completedAt *time.Time
	if entry.Complete {
		now := e.now()
		completedAt = &now
	}

	unlock := e.tasks.Lock("create:" + entry.Body)
	defer unlock()

	refs, err := e.uploader.Upload(ctx, files)
	if err != nil {
		e.emit(Signal{Kind: TaskSaveFailed, Err: err})
		return service.TaskMutationResult{}, err
	}

	res, err := e.api.CreateTodo(ctx, entry.Body, completedAt, refs)
	if err != nil {
		err = &service.MutationError{Op: "createTodo", Err: err}
		e.emit(Signal{Kind: TaskSaveFailed, Err: err})
		return service.TaskMutationResult{}, err
	}

	e.logger.Info("engine: task created", "id", res.ID, "completed", res.CompletedAt != nil, "attachments", len(refs))
	e.emit(Signal{Kind: TaskSaved, Result: &res})
	return res, nil
}

// CompleteTask completes taskID after uploading files. Calls for the same
// id run one at a time.
func (e *Engine) CompleteTask(ctx context.Context, taskID string, files []service.LocalFile) (service.TaskMutationResult, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return service.TaskMutationResult{}, service.ErrMissingID
	}

	unlock := e.tasks.Lock("complete:" + taskID)
	defer unlock()

	refs, err := e.uploader.Upload(ctx, files)
	if err != nil {
		e.emit(Signal{Kind: TaskSaveFailed, Err: err})
		return service.TaskMutationResult{}, err
	}

	res, err := e.api.CompleteTodo(ctx, taskID, refs)
	if err != nil {
		err = &service.MutationError{Op: "completeTodo", Err: err}
		e.emit(Signal{Kind: TaskSaveFailed, Err: err})
		return service.TaskMutationResult{}, err
	}

	e.logger.Info("engine: task completed", "id", res.ID, "attachments", len(refs))
	e.emit(Signal{Kind: TaskSaved, Result: &res})
	return res, nil
}

// ListPendingTasks returns up to service.PendingLimit open tasks in server order.
func (e *Engine) ListPendingTasks(ctx context.Context, filter string) ([]service.PendingTask, error) {
	return e.api.PendingTodos(ctx, strings.TrimSpace(filter))
}

// ResetAuth clears the token and the snapshot. Both are cleared in memory
// even if persisting fails; the first persist error is returned.
func (e *Engine) ResetAuth() error {
	credErr := e.creds.Reset()

	e.mu.Lock()
	e.gen++
	e.snap, e.hasSnap = service.ViewerSnapshot{}, false
	e.mu.Unlock()

	var snapErr error
	if e.snapshots != nil {
		snapErr = e.snapshots.ClearViewer()
	}

	e.logger.Info("engine: credentials reset")
	if credErr != nil {
		return fmt.Errorf("reset credentials: %w", credErr)
	}
	if snapErr != nil {
		return fmt.Errorf("clear viewer: %w", snapErr)
	}
	return nil
}

// SetDevMode selects the development origin when enabled.
func (e *Engine) SetDevMode(enabled bool) error {
	mode := service.Production
	if enabled {
		mode = service.Development
	}
	if err := e.creds.SetMode(mode); err != nil {
		return fmt.Errorf("save endpoint mode: %w", err)
	}
	e.logger.Info("engine: endpoint mode changed", "mode", mode)
	return nil
}
