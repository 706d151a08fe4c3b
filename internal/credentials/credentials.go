// Package credentials holds the access token and endpoint mode.
package credentials

import (
	"sync"

	"golang.org/x/oauth2"

	"wip/internal/service"
)

// Persister saves credentials between runs.
type Persister interface {
	LoadCredentials() (service.Credentials, error)
	SaveCredentials(service.Credentials) error
}

// Store is the single owner of the current credentials.
// All mutation goes through Update.
type Store struct {
	mu      sync.RWMutex
	current service.Credentials
	persist Persister
}

// New creates a store seeded with initial credentials.
// persist may be nil, in which case changes are kept in memory only.
func New(initial service.Credentials, persist Persister) *Store {
	return &Store{current: initial, persist: persist}
}

// Load creates a store from whatever the persister has saved.
func Load(persist Persister) (*Store, error) {
	creds, err := persist.LoadCredentials()
	if err != nil {
		return nil, err
	}
	return New(creds, persist), nil
}

// Get returns a copy of the current credentials.
func (s *Store) Get() service.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies fn to a copy of the credentials and commits the result.
// If persisting fails the in-memory value is left unchanged.
func (s *Store) Update(fn func(*service.Credentials)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)
	if s.persist != nil {
		if err := s.persist.SaveCredentials(next); err != nil {
			return err
		}
	}
	s.current = next
	return nil
}

// SetToken stores a new access token.
func (s *Store) SetToken(token string) error {
	return s.Update(func(c *service.Credentials) { c.AccessToken = token })
}

// SetMode switches the endpoint mode.
func (s *Store) SetMode(mode service.EndpointMode) error {
	return s.Update(func(c *service.Credentials) { c.Mode = mode })
}

// Reset clears the access token. The endpoint mode is kept.
// The in-memory token is cleared even when persisting fails, so no further
// call can use it; the persist error is still returned.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.AccessToken = ""
	if s.persist != nil {
		return s.persist.SaveCredentials(s.current)
	}
	return nil
}

// Token implements oauth2.TokenSource over the current access token.
func (s *Store) Token() (*oauth2.Token, error) {
	creds := s.Get()
	if !creds.HasToken() {
		return nil, &service.AuthError{Err: service.ErrUnauthenticated}
	}
	return &oauth2.Token{AccessToken: creds.AccessToken, TokenType: "Bearer"}, nil
}

var _ oauth2.TokenSource = (*Store)(nil)
