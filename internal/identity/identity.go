// Package identity defines the narrow contract the view layer needs from an
// identity provider. Implementations own token caching, silent renewal and the
// interactive browser flow; callers only see accounts and access tokens.
package identity

import (
	"context"
	"time"
)

// Standard OIDC scopes requested on login in addition to the API scopes.
var OIDCScopes = []string{"openid", "profile", "email"}

// Account is a signed in user as reported by the identity provider.
type Account struct {
	HomeAccountID string
	Username      string
	// Name and GivenName carry the "name" and "given_name" ID token claims.
	Name      string
	GivenName string
}

// DisplayName returns the name shown on the page.
func (a Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return "Unknown user"
}

// Result is the outcome of a token acquisition.
type Result struct {
	Account       Account
	AccessToken   string
	ExpiresOn     time.Time
	GrantedScopes []string
}

// Client is implemented by every identity provider backend.
type Client interface {
	// Accounts lists the accounts currently signed in.
	Accounts(ctx context.Context) ([]Account, error)
	// AcquireInteractive runs the interactive browser flow for scopes.
	AcquireInteractive(ctx context.Context, scopes []string) (Result, error)
	// AcquireSilentOrPrompt uses a cached session when it can and falls back
	// to the interactive flow otherwise.
	AcquireSilentOrPrompt(ctx context.Context, scopes []string) (Result, error)
	// Logout ends the session at the provider and forgets cached accounts.
	Logout(ctx context.Context) error
}
