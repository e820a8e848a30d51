package identity

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/openkcm/b2c-auth-demo/internal/serviceerr"
)

// Configuration describes the public client registered in the B2C tenant.
// It is built once at startup and must not be modified afterwards.
type Configuration struct {
	ClientID            string
	Authority           string
	KnownAuthorityHosts []string
	RedirectURI         string
	// PostLogoutRedirectURI is where the provider sends the browser after
	// logout.
	PostLogoutRedirectURI string
	// APIScopes are the scopes of the custom API resource.
	APIScopes []string
}

// NewConfiguration validates the values and returns a Configuration.
func NewConfiguration(clientID, authority string, knownHosts []string, redirectURI, postLogoutRedirectURI string, apiScopes []string) (Configuration, error) {
	if clientID == "" {
		return Configuration{}, fmt.Errorf("client id must not be empty")
	}

	if _, err := url.ParseRequestURI(redirectURI); err != nil {
		return Configuration{}, fmt.Errorf("parsing redirect uri: %w", err)
	}

	if postLogoutRedirectURI == "" {
		postLogoutRedirectURI = redirectURI
	}

	c := Configuration{
		ClientID:              clientID,
		Authority:             strings.TrimSuffix(authority, "/"),
		KnownAuthorityHosts:   slices.Clone(knownHosts),
		RedirectURI:           redirectURI,
		PostLogoutRedirectURI: postLogoutRedirectURI,
		APIScopes:             slices.Clone(apiScopes),
	}

	if _, err := c.AuthorityHost(); err != nil {
		return Configuration{}, err
	}

	return c, nil
}

// AuthorityHost returns the host of the authority URL. The host must be listed
// in KnownAuthorityHosts since B2C authorities cannot be validated through
// instance discovery.
func (c Configuration) AuthorityHost() (string, error) {
	u, err := url.Parse(c.Authority)
	if err != nil {
		return "", fmt.Errorf("parsing authority: %w", err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return "", fmt.Errorf("authority %q must be an absolute https url", c.Authority)
	}

	host := strings.ToLower(u.Hostname())
	for _, known := range c.KnownAuthorityHosts {
		if strings.EqualFold(known, host) {
			return host, nil
		}
	}

	return "", fmt.Errorf("%w: %s", serviceerr.ErrInvalidAuthority, host)
}

// LoginScopes returns the scopes requested by the login control.
func (c Configuration) LoginScopes() []string {
	return append(slices.Clone(OIDCScopes), c.APIScopes...)
}

// LogoutURL returns the end session endpoint of the authority.
func (c Configuration) LogoutURL() (string, error) {
	u, err := url.Parse(c.Authority + "/oauth2/v2.0/logout")
	if err != nil {
		return "", fmt.Errorf("parsing logout url: %w", err)
	}

	q := u.Query()
	q.Set("post_logout_redirect_uri", c.PostLogoutRedirectURI)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
