// Package session holds the session provider handed to the view layer. It
// owns the identity configuration and client and only delegates to them.
package session

import (
	"context"
	"fmt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/b2c-auth-demo/internal/identity"
	"github.com/openkcm/b2c-auth-demo/internal/serviceerr"
)

type Provider struct {
	cfg    identity.Configuration
	client identity.Client
}

func NewProvider(cfg identity.Configuration, client identity.Client) *Provider {
	return &Provider{
		cfg:    cfg,
		client: client,
	}
}

// Accounts returns the signed in accounts.
func (p *Provider) Accounts(ctx context.Context) ([]identity.Account, error) {
	accounts, err := p.client.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting accounts: %w", err)
	}

	return accounts, nil
}

// Login runs the interactive flow with the OIDC scopes and the API scopes.
func (p *Provider) Login(ctx context.Context) (identity.Account, error) {
	scopes := p.cfg.LoginScopes()

	res, err := p.client.AcquireInteractive(ctx, scopes)
	if err != nil {
		return identity.Account{}, &serviceerr.AuthenticationError{Err: err}
	}

	slogctx.Info(ctx, "User signed in", "username", res.Account.Username)

	return res.Account, nil
}

// Logout ends the session at the authority and forgets cached accounts.
func (p *Provider) Logout(ctx context.Context) error {
	if err := p.client.Logout(ctx); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}

	slogctx.Info(ctx, "User signed out")

	return nil
}

// AcquireToken returns an access token for the API scopes. The cached session
// is used when possible, otherwise the user is prompted.
func (p *Provider) AcquireToken(ctx context.Context) (identity.Result, error) {
	scopes := p.cfg.APIScopes

	res, err := p.client.AcquireSilentOrPrompt(ctx, scopes)
	if err != nil {
		return identity.Result{}, &serviceerr.TokenAcquisitionError{Scopes: scopes, Err: err}
	}
	if res.AccessToken == "" {
		return identity.Result{}, &serviceerr.TokenAcquisitionError{Scopes: scopes}
	}

	return res, nil
}
