// Package wip binds the remote GraphQL operations and OAuth token endpoint.
package wip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"wip/internal/service"
	"wip/internal/transport"
)

const (
	// ClientID is the OAuth client identifier of the desktop app.
	ClientID = "3225b01300130110b77dfce9bff5fd3d99807c1f77d9ba554fb3b885ee0a3c3c"

	// RedirectURI is the out-of-band redirect used by the code flow.
	RedirectURI = "urn:ietf:wg:oauth:2.0:oob"

	// TokenPath is the OAuth token endpoint path.
	TokenPath = "/oauth/token"

	// AuthorizePath is the OAuth authorization page path.
	AuthorizePath = "/oauth/authorize"

	// APITimeout is the default timeout for a single remote call.
	APITimeout = 30 * time.Second

	// completedAtLayout matches the millisecond ISO-8601 format the remote expects.
	completedAtLayout = "2006-01-02T15:04:05.000Z07:00"
)

const viewerQuery = `
{
  viewer {
    id
    username
    first_name
    streak
    best_streak
    completed_todos_count
    streaking
    products {
      name
      url
    }
  }
}`

const pendingTodosQuery = `
query ($filter: String) {
  viewer {
    todos(filter: $filter, completed: false, limit: 100) {
      id
      body
    }
  }
}`

const createTodoMutation = `
mutation createTodo($body: String!, $completed_at: DateTime, $attachments: [AttachmentInput]) {
  createTodo(input: { body: $body, completed_at: $completed_at, attachments: $attachments }) {
    id
    body
    completed_at
  }
}`

const completeTodoMutation = `
mutation completeTodo($id: ID!, $attachments: [AttachmentInput]) {
  completeTodo(id: $id, attachments: $attachments) {
    id
    completed_at
  }
}`

const createPresignedURLMutation = `
mutation createPresignedUrl($filename: String!) {
  createPresignedUrl(input: { filename: $filename }) {
    url
    fields
    method
    headers
  }
}`

// Client implements the remote operations on top of a transport.Client.
type Client struct {
	gql     *transport.Client
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a remote API client. A zero timeout disables per-call timeouts.
func New(gql *transport.Client, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{gql: gql, timeout: timeout, logger: logger}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

type viewerData struct {
	Viewer *struct {
		Username            string            `json:"username"`
		FirstName           string            `json:"first_name"`
		Streak              int               `json:"streak"`
		BestStreak          int               `json:"best_streak"`
		CompletedTodosCount int               `json:"completed_todos_count"`
		Streaking           bool              `json:"streaking"`
		Products            []service.Product `json:"products"`
	} `json:"viewer"`
}

// Viewer fetches the authenticated user's profile and streak summary.
func (c *Client) Viewer(ctx context.Context) (service.ViewerSnapshot, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	data, err := c.gql.Execute(ctx, viewerQuery, nil)
	if err != nil {
		return service.ViewerSnapshot{}, wrapError(err)
	}

	var out viewerData
	if err := json.Unmarshal(data, &out); err != nil {
		return service.ViewerSnapshot{}, &service.ProtocolError{Op: "viewer", Err: err}
	}
	if out.Viewer == nil {
		return service.ViewerSnapshot{}, &service.ProtocolError{Op: "viewer", Err: errors.New("missing viewer")}
	}

	v := out.Viewer
	products := v.Products
	if products == nil {
		products = []service.Product{}
	}
	return service.ViewerSnapshot{
		Username:       v.Username,
		FirstName:      v.FirstName,
		CurrentStreak:  v.Streak,
		BestStreak:     v.BestStreak,
		CompletedTodos: v.CompletedTodosCount,
		Streaking:      v.Streaking,
		Products:       products,
	}, nil
}

type pendingData struct {
	Viewer *struct {
		Todos []struct {
			ID   flexID `json:"id"`
			Body string `json:"body"`
		} `json:"todos"`
	} `json:"viewer"`
}

// PendingTodos returns up to 100 incomplete todos matching filter, in server order.
// An empty filter matches everything.
func (c *Client) PendingTodos(ctx context.Context, filter string) ([]service.PendingTask, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var filterVar any
	if filter != "" {
		filterVar = filter
	}
	data, err := c.gql.Execute(ctx, pendingTodosQuery, map[string]any{"filter": filterVar})
	if err != nil {
		return nil, wrapError(err)
	}

	var out pendingData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &service.ProtocolError{Op: "todos", Err: err}
	}
	if out.Viewer == nil {
		return nil, &service.ProtocolError{Op: "todos", Err: errors.New("missing viewer")}
	}

	todos := out.Viewer.Todos
	if len(todos) > service.PendingLimit {
		todos = todos[:service.PendingLimit]
	}
	result := make([]service.PendingTask, 0, len(todos))
	for _, t := range todos {
		result = append(result, service.PendingTask{ID: string(t.ID), Body: t.Body})
	}
	return result, nil
}

type mutationResult struct {
	ID          flexID  `json:"id"`
	CompletedAt *string `json:"completed_at"`
}

func (r mutationResult) toResult(op string) (service.TaskMutationResult, error) {
	res := service.TaskMutationResult{ID: string(r.ID)}
	if r.CompletedAt != nil && *r.CompletedAt != "" {
		ts, err := time.Parse(time.RFC3339, *r.CompletedAt)
		if err != nil {
			return service.TaskMutationResult{}, &service.ProtocolError{Op: op, Err: fmt.Errorf("completed_at: %w", err)}
		}
		res.CompletedAt = &ts
	}
	return res, nil
}

// CreateTodo issues the create mutation. completedAt nil leaves the todo open.
func (c *Client) CreateTodo(ctx context.Context, body string, completedAt *time.Time, attachments []service.AttachmentRef) (service.TaskMutationResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var completedVar any
	if completedAt != nil {
		completedVar = completedAt.UTC().Format(completedAtLayout)
	}
	vars := map[string]any{
		"body":         body,
		"completed_at": completedVar,
		"attachments":  nonNil(attachments),
	}
	data, err := c.gql.Execute(ctx, createTodoMutation, vars)
	if err != nil {
		return service.TaskMutationResult{}, wrapError(err)
	}

	var out struct {
		CreateTodo *mutationResult `json:"createTodo"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return service.TaskMutationResult{}, &service.ProtocolError{Op: "createTodo", Err: err}
	}
	if out.CreateTodo == nil {
		return service.TaskMutationResult{}, &service.ProtocolError{Op: "createTodo", Err: errors.New("missing createTodo")}
	}
	return out.CreateTodo.toResult("createTodo")
}

// CompleteTodo issues the complete mutation for an existing todo.
func (c *Client) CompleteTodo(ctx context.Context, id string, attachments []service.AttachmentRef) (service.TaskMutationResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	vars := map[string]any{
		"id":          id,
		"attachments": nonNil(attachments),
	}
	data, err := c.gql.Execute(ctx, completeTodoMutation, vars)
	if err != nil {
		return service.TaskMutationResult{}, wrapError(err)
	}

	var out struct {
		CompleteTodo *mutationResult `json:"completeTodo"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return service.TaskMutationResult{}, &service.ProtocolError{Op: "completeTodo", Err: err}
	}
	if out.CompleteTodo == nil {
		return service.TaskMutationResult{}, &service.ProtocolError{Op: "completeTodo", Err: errors.New("missing completeTodo")}
	}
	return out.CompleteTodo.toResult("completeTodo")
}

// CreatePresignedURL requests a fresh single-use upload target for filename.
func (c *Client) CreatePresignedURL(ctx context.Context, filename string) (service.UploadTarget, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	c.logger.Debug("creating presigned URL", "filename", filename)

	data, err := c.gql.Execute(ctx, createPresignedURLMutation, map[string]any{"filename": filename})
	if err != nil {
		return service.UploadTarget{}, wrapError(err)
	}
	return decodeUploadTarget(data)
}

// oauthConfig returns the code-flow configuration for the current origin.
func (c *Client) oauthConfig() *oauth2.Config {
	origin := c.gql.Origin()
	return &oauth2.Config{
		ClientID: ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:   origin + AuthorizePath,
			TokenURL:  origin + TokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: RedirectURI,
	}
}

// AuthorizeURL returns the page where the user obtains an authorization code.
func (c *Client) AuthorizeURL() string {
	return c.oauthConfig().AuthCodeURL("")
}

// ExchangeCode trades an authorization code for an access token.
// It does not touch stored credentials.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.gql.HTTPClient())
	tok, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", &service.AuthError{Err: &service.NetworkError{
				Status: retrieveErr.Response.StatusCode,
				Body:   string(retrieveErr.Body),
				Err:    err,
			}}
		}
		return "", &service.AuthError{Err: wrapError(err)}
	}
	return tok.AccessToken, nil
}

// wrapError turns a bare timeout into a NetworkError; typed errors pass through.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		var netErr *service.NetworkError
		if !errors.As(err, &netErr) {
			return &service.NetworkError{Err: fmt.Errorf("request timed out: %w", err)}
		}
	}
	return err
}

func nonNil(refs []service.AttachmentRef) []service.AttachmentRef {
	if refs == nil {
		return []service.AttachmentRef{}
	}
	return refs
}

// flexID accepts GraphQL IDs serialized either as strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = flexID(n.String())
	return nil
}
