package identitymock

import (
	"context"
	"slices"
	"sync"

	"github.com/openkcm/b2c-auth-demo/internal/identity"
)

type ClientOption func(*Client)

// Alice is the user signed in by default.
var Alice = identity.Account{
	HomeAccountID: "alice-home-id",
	Username:      "alice@contoso.com",
	Name:          "Alice A.",
	GivenName:     "Alice",
}

// Client is an in memory identity.Client. Interactive acquisitions sign in
// the configured user, silent acquisitions reuse the first signed in account.
type Client struct {
	mu       sync.Mutex
	user     identity.Account
	token    string
	accounts []identity.Account

	accountsErr, interactiveErr, silentErr, logoutErr error

	InteractiveCalls int
	SilentCalls      int
	LogoutCalls      int
	Scopes           [][]string
}

func WithUser(user identity.Account) ClientOption {
	return func(c *Client) { c.user = user }
}
func WithAccessToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}
func WithSignedIn(account identity.Account) ClientOption {
	return func(c *Client) { c.accounts = append(c.accounts, account) }
}
func WithAccountsError(err error) ClientOption {
	return func(c *Client) { c.accountsErr = err }
}
func WithInteractiveError(err error) ClientOption {
	return func(c *Client) { c.interactiveErr = err }
}
func WithSilentError(err error) ClientOption {
	return func(c *Client) { c.silentErr = err }
}
func WithLogoutError(err error) ClientOption {
	return func(c *Client) { c.logoutErr = err }
}

var _ = identity.Client(&Client{})

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		user:  Alice,
		token: "access-token",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) Accounts(_ context.Context) ([]identity.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accountsErr != nil {
		return nil, c.accountsErr
	}

	return slices.Clone(c.accounts), nil
}

func (c *Client) AcquireInteractive(_ context.Context, scopes []string) (identity.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.acquireInteractive(scopes)
}

func (c *Client) AcquireSilentOrPrompt(_ context.Context, scopes []string) (identity.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.accounts) > 0 && c.silentErr == nil {
		c.SilentCalls++
		c.Scopes = append(c.Scopes, slices.Clone(scopes))
		return identity.Result{Account: c.accounts[0], AccessToken: c.token, GrantedScopes: scopes}, nil
	}

	return c.acquireInteractive(scopes)
}

func (c *Client) Logout(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.LogoutCalls++
	if c.logoutErr != nil {
		return c.logoutErr
	}

	c.accounts = nil
	return nil
}

func (c *Client) acquireInteractive(scopes []string) (identity.Result, error) {
	c.InteractiveCalls++
	c.Scopes = append(c.Scopes, slices.Clone(scopes))
	if c.interactiveErr != nil {
		return identity.Result{}, c.interactiveErr
	}

	if !slices.ContainsFunc(c.accounts, func(a identity.Account) bool { return a.HomeAccountID == c.user.HomeAccountID }) {
		c.accounts = append(c.accounts, c.user)
	}

	return identity.Result{Account: c.user, AccessToken: c.token, GrantedScopes: scopes}, nil
}
