// Package transport executes GraphQL operations against the remote endpoint.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"wip/internal/service"
)

const (
	// ProductionOrigin is the public origin.
	ProductionOrigin = "https://wip.chat"

	// DevelopmentOrigin is the local test origin.
	DevelopmentOrigin = "http://wip.test"

	// GraphQLPath is the path of the query/mutation endpoint.
	GraphQLPath = "/graphql"

	// RequestIDHeader carries a per-request correlation id.
	RequestIDHeader = "X-Request-Id"
)

// Endpoints maps each endpoint mode to its origin.
type Endpoints struct {
	Production  string
	Development string
}

// DefaultEndpoints returns the fixed public and local origins.
func DefaultEndpoints() Endpoints {
	return Endpoints{Production: ProductionOrigin, Development: DevelopmentOrigin}
}

// Origin returns the origin for mode.
func (e Endpoints) Origin(mode service.EndpointMode) string {
	if mode == service.Development {
		return e.Development
	}
	return e.Production
}

// CredentialSource is what the client reads the token and mode from.
type CredentialSource interface {
	oauth2.TokenSource
	Get() service.Credentials
}

// Client executes authenticated GraphQL operations. It holds no state of its
// own besides its configuration; credentials are read on every call.
type Client struct {
	creds     CredentialSource
	endpoints Endpoints
	base      http.RoundTripper
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoints overrides the production/development origins.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.endpoints = e }
}

// WithRoundTripper sets the underlying transport (defaults to http.DefaultTransport).
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client reading credentials from creds.
func New(creds CredentialSource, opts ...Option) *Client {
	c := &Client{
		creds:     creds,
		endpoints: DefaultEndpoints(),
		base:      http.DefaultTransport,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Origin returns the origin for the current endpoint mode.
func (c *Client) Origin() string {
	return c.endpoints.Origin(c.creds.Get().Mode)
}

// HTTPClient returns an unauthenticated client sharing the configured transport.
// Used for calls that must not carry the bearer token (OAuth, uploads).
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{Transport: c.base}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Execute runs a named query or mutation and returns its "data" member.
func (c *Client) Execute(ctx context.Context, operation string, variables map[string]any) (json.RawMessage, error) {
	creds := c.creds.Get()
	if !creds.HasToken() {
		return nil, &service.AuthError{Err: service.ErrUnauthenticated}
	}

	payload, err := json.Marshal(gqlRequest{Query: operation, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoints.Origin(creds.Mode) + GraphQLPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)

	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: c.creds, Base: c.base},
	}

	c.logger.Debug("transport: execute", "op", operationName(operation), "url", url, "request_id", reqID)

	resp, err := httpClient.Do(req)
	if err != nil {
		if service.IsAuth(err) {
			return nil, err
		}
		return nil, &service.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		netErr := networkError(err)
		c.logger.Debug("transport: rejected", "request_id", reqID, "status", netErr.Status)
		if netErr.Status == http.StatusUnauthorized {
			return nil, &service.AuthError{Err: netErr}
		}
		return nil, netErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &service.NetworkError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	var out gqlResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &service.ProtocolError{Op: operationName(operation), Err: err}
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, &service.RemoteError{Messages: msgs}
	}
	if len(out.Data) == 0 || string(out.Data) == "null" {
		return nil, &service.ProtocolError{Op: operationName(operation), Err: errors.New("response has no data")}
	}
	return out.Data, nil
}

// networkError converts a googleapi status error into a NetworkError,
// keeping the raw status and body.
func networkError(err error) *service.NetworkError {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &service.NetworkError{Status: apiErr.Code, Body: apiErr.Body, Err: err}
	}
	return &service.NetworkError{Err: err}
}

// CheckStatus returns a NetworkError for any non-2xx response, nil otherwise.
// The response body is consumed on error.
func CheckStatus(resp *http.Response) error {
	if err := googleapi.CheckResponse(resp); err != nil {
		return networkError(err)
	}
	return nil
}

// operationName extracts "createTodo" from "mutation createTodo(...) {...}".
// Anonymous operations are reported as "query".
func operationName(op string) string {
	fields := strings.Fields(op)
	if len(fields) < 2 || (fields[0] != "query" && fields[0] != "mutation") {
		return "query"
	}
	name := fields[1]
	if i := strings.IndexAny(name, "({"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return fields[0]
	}
	return name
}
