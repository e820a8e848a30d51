// Package view holds the page state and the three user actions of the demo
// page: login, logout and sending the access token to the backend.
package view

import (
	"context"
	"fmt"
	"sync"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/b2c-auth-demo/internal/identity"
	"github.com/openkcm/b2c-auth-demo/internal/serviceerr"
)

// SessionProvider gives the view access to the signed in accounts and the
// identity operations.
type SessionProvider interface {
	Accounts(ctx context.Context) ([]identity.Account, error)
	Login(ctx context.Context) (identity.Account, error)
	Logout(ctx context.Context) error
	AcquireToken(ctx context.Context) (identity.Result, error)
}

// Backend sends the given name with the access token and returns the name
// the backend answered with.
type Backend interface {
	Send(ctx context.Context, accessToken, givenName string) (string, error)
}

// State is the page state that outlives a single request. BackendResponse is
// only reset by restarting the process.
type State struct {
	mu              sync.RWMutex
	backendResponse *string
}

// BackendResponse returns the last name returned by the backend and whether
// one was received.
func (s *State) BackendResponse() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.backendResponse == nil {
		return "", false
	}
	return *s.backendResponse, true
}

func (s *State) setBackendResponse(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.backendResponse = &name
}

type View struct {
	session SessionProvider
	backend Backend
	state   State
}

func New(session SessionProvider, backend Backend) *View {
	return &View{
		session: session,
		backend: backend,
	}
}

// State returns the page state.
func (v *View) State() *State {
	return &v.state
}

// Login signs the user in. Errors are *serviceerr.AuthenticationError.
func (v *View) Login(ctx context.Context) error {
	_, err := v.session.Login(ctx)
	return err
}

// Logout signs the user out. The backend response is kept.
func (v *View) Logout(ctx context.Context) error {
	return v.session.Logout(ctx)
}

// SendToBackend acquires an access token and posts the user's given name to
// the backend. The backend is never called without a token or without a
// given name. On success the returned name becomes the backend response of
// the page.
func (v *View) SendToBackend(ctx context.Context) (string, error) {
	res, err := v.session.AcquireToken(ctx)
	if err != nil {
		return "", err
	}

	givenName := res.Account.GivenName
	accounts, err := v.session.Accounts(ctx)
	switch {
	case err != nil:
		slogctx.Warn(ctx, "Reading the signed in accounts failed, using the account of the token", "error", err)
	case len(accounts) > 0:
		givenName = accounts[0].GivenName
	}
	if givenName == "" {
		return "", serviceerr.ErrNoAccount
	}

	name, err := v.backend.Send(ctx, res.AccessToken, givenName)
	if err != nil {
		return "", err
	}

	v.state.setBackendResponse(name)
	slogctx.Debug(ctx, "Stored backend response", "name", name)

	return name, nil
}

// Model is what the page template renders.
type Model struct {
	Authenticated      bool
	DisplayName        string
	BackendResponse    string
	HasBackendResponse bool
}

// Model builds the render model from the signed in accounts and the state.
// The backend response is only shown to an authenticated user.
func (v *View) Model(ctx context.Context) (Model, error) {
	accounts, err := v.session.Accounts(ctx)
	if err != nil {
		return Model{}, fmt.Errorf("building page model: %w", err)
	}

	if len(accounts) == 0 {
		return Model{}, nil
	}

	m := Model{
		Authenticated: true,
		DisplayName:   accounts[0].DisplayName(),
	}
	m.BackendResponse, m.HasBackendResponse = v.state.BackendResponse()

	return m, nil
}
