// Package msal implements identity.Client on top of the Microsoft
// Authentication Library public client. The interactive flow opens the system
// browser and listens on the loopback redirect URI until the authority
// redirects back with an authorization code.
package msal

import (
	"context"
	"fmt"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"github.com/pkg/browser"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/b2c-auth-demo/internal/identity"
)

// publicClient is the subset of public.Client used here.
type publicClient interface {
	Accounts(ctx context.Context) ([]public.Account, error)
	AcquireTokenSilent(ctx context.Context, scopes []string, opts ...public.AcquireSilentOption) (public.AuthResult, error)
	AcquireTokenInteractive(ctx context.Context, scopes []string, opts ...public.AcquireInteractiveOption) (public.AuthResult, error)
	RemoveAccount(ctx context.Context, account public.Account) error
}

type Client struct {
	cfg     identity.Configuration
	pca     publicClient
	openURL func(string) error

	// claims remembers the ID token claims per home account id, the cached
	// MSAL accounts only carry the username.
	mu     sync.RWMutex
	claims map[string]identity.Account
}

var _ identity.Client = (*Client)(nil)

// New creates a Client. A nil accessor keeps the token cache in memory.
func New(cfg identity.Configuration, accessor cache.ExportReplace) (*Client, error) {
	// only known authorities are accepted, instance discovery does not
	// know about b2clogin.com hosts
	if _, err := cfg.AuthorityHost(); err != nil {
		return nil, err
	}

	opts := []public.Option{
		public.WithAuthority(cfg.Authority),
		public.WithInstanceDiscovery(false),
	}
	if accessor != nil {
		opts = append(opts, public.WithCache(accessor))
	}

	pca, err := public.New(cfg.ClientID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating msal public client: %w", err)
	}

	return newClient(cfg, pca, browser.OpenURL), nil
}

func newClient(cfg identity.Configuration, pca publicClient, openURL func(string) error) *Client {
	return &Client{
		cfg:     cfg,
		pca:     pca,
		openURL: openURL,
		claims:  make(map[string]identity.Account),
	}
}

// Accounts implements identity.Client.
func (c *Client) Accounts(ctx context.Context) ([]identity.Account, error) {
	accounts, err := c.pca.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing cached accounts: %w", err)
	}

	res := make([]identity.Account, 0, len(accounts))
	for _, a := range accounts {
		res = append(res, c.toAccount(a))
	}

	return res, nil
}

// AcquireInteractive implements identity.Client.
func (c *Client) AcquireInteractive(ctx context.Context, scopes []string) (identity.Result, error) {
	slogctx.Debug(ctx, "Starting interactive token acquisition", "scopes", scopes)

	res, err := c.pca.AcquireTokenInteractive(ctx, scopes, public.WithRedirectURI(c.cfg.RedirectURI))
	if err != nil {
		return identity.Result{}, fmt.Errorf("acquiring token interactively: %w", err)
	}

	return c.remember(res), nil
}

// AcquireSilentOrPrompt implements identity.Client.
func (c *Client) AcquireSilentOrPrompt(ctx context.Context, scopes []string) (identity.Result, error) {
	accounts, err := c.pca.Accounts(ctx)
	if err != nil {
		slogctx.Warn(ctx, "Could not list cached accounts", "error", err)
	}

	if len(accounts) > 0 {
		res, err := c.pca.AcquireTokenSilent(ctx, scopes, public.WithSilentAccount(accounts[0]))
		if err == nil {
			return c.remember(res), nil
		}
		slogctx.Debug(ctx, "Silent token acquisition failed, prompting the user", "error", err)
	}

	return c.AcquireInteractive(ctx, scopes)
}

// Logout implements identity.Client. The end session page is opened in the
// system browser and every cached account is removed.
func (c *Client) Logout(ctx context.Context) error {
	logoutURL, err := c.cfg.LogoutURL()
	if err != nil {
		return err
	}

	if err := c.openURL(logoutURL); err != nil {
		return fmt.Errorf("opening logout page: %w", err)
	}

	accounts, err := c.pca.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("listing cached accounts: %w", err)
	}

	for _, a := range accounts {
		if err := c.pca.RemoveAccount(ctx, a); err != nil {
			return fmt.Errorf("removing account from cache: %w", err)
		}

		c.mu.Lock()
		delete(c.claims, a.HomeAccountID)
		c.mu.Unlock()
	}

	return nil
}

func (c *Client) remember(res public.AuthResult) identity.Result {
	account := identity.Account{
		HomeAccountID: res.Account.HomeAccountID,
		Username:      res.Account.PreferredUsername,
		Name:          res.IDToken.Name,
		GivenName:     res.IDToken.GivenName,
	}

	if account.Name != "" || account.GivenName != "" {
		c.mu.Lock()
		c.claims[account.HomeAccountID] = account
		c.mu.Unlock()
	} else {
		account = c.toAccount(res.Account)
	}

	return identity.Result{
		Account:       account,
		AccessToken:   res.AccessToken,
		ExpiresOn:     res.ExpiresOn,
		GrantedScopes: res.GrantedScopes,
	}
}

func (c *Client) toAccount(a public.Account) identity.Account {
	c.mu.RLock()
	known, ok := c.claims[a.HomeAccountID]
	c.mu.RUnlock()
	if ok {
		return known
	}

	return identity.Account{
		HomeAccountID: a.HomeAccountID,
		Username:      a.PreferredUsername,
		Name:          a.Name,
		GivenName:     a.GivenName,
	}
}
