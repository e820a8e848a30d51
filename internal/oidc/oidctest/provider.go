// Package oidctest runs a fake identity provider publishing a discovery
// document and a key set, and mints access tokens signed by it.
package oidctest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/b2c-auth-demo/internal/oidc"
)

const (
	KeyID    = "test-key"
	Audience = "api-client-id"
)

type Provider struct {
	Server *httptest.Server
	key    *rsa.PrivateKey

	mu        sync.Mutex
	published map[string]*rsa.PrivateKey

	// Requests counts the requests served, discovery and jwks together.
	Requests atomic.Int32
}

// Start runs the provider until the test ends.
func Start(t *testing.T) *Provider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := &Provider{key: key, published: map[string]*rsa.PrivateKey{KeyID: key}}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.Requests.Add(1)
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/v2.0/.well-known/openid-configuration":
			_ = json.NewEncoder(w).Encode(oidc.Configuration{
				Issuer:  p.Issuer(),
				JwksURI: p.Server.URL + "/discovery/v2.0/keys",
			})
		case "/discovery/v2.0/keys":
			_ = json.NewEncoder(w).Encode(p.keySet())
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(p.Server.Close)

	return p
}

// PublishKey adds a new signing key under kid to the key set, the way a
// provider rotates its keys. Sign uses it for tokens with that kid.
func (p *Provider) PublishKey(t *testing.T, kid string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.published[kid] = key
}

func (p *Provider) keySet() jose.JSONWebKeySet {
	p.mu.Lock()
	defer p.mu.Unlock()

	var keySet jose.JSONWebKeySet
	for kid, key := range p.published {
		keySet.Keys = append(keySet.Keys, jose.JSONWebKey{
			Key:       &key.PublicKey,
			KeyID:     kid,
			Algorithm: string(jose.RS256),
			Use:       "sig",
		})
	}
	slices.SortFunc(keySet.Keys, func(a, b jose.JSONWebKey) int {
		return strings.Compare(a.KeyID, b.KeyID)
	})

	return keySet
}

func (p *Provider) DiscoveryURL() string {
	return p.Server.URL + "/v2.0/.well-known/openid-configuration"
}

func (p *Provider) Issuer() string {
	return p.Server.URL + "/v2.0/"
}

// Claims are the claims of a B2C access token used in tests.
type Claims struct {
	jwt.Claims
	Name      string `json:"name,omitempty"`
	GivenName string `json:"given_name,omitempty"`
	Scope     string `json:"scp,omitempty"`
}

// ValidClaims returns claims accepted by a verifier configured with Issuer
// and Audience.
func (p *Provider) ValidClaims() Claims {
	now := time.Now()
	return Claims{
		Claims: jwt.Claims{
			Issuer:    p.Issuer(),
			Subject:   "alice-object-id",
			Audience:  jwt.Audience{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Expiry:    jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Name:      "Alice A.",
		GivenName: "Alice",
		Scope:     "auth",
	}
}

// Sign signs claims with the key published under kid, or with the provider
// key when kid was never published. An empty kid omits the header.
func (p *Provider) Sign(t *testing.T, kid string, claims Claims) string {
	t.Helper()

	p.mu.Lock()
	key, ok := p.published[kid]
	p.mu.Unlock()
	if !ok {
		key = p.key
	}

	return sign(t, key, kid, claims)
}

// SignForeign signs claims with a key the provider does not publish.
func (p *Provider) SignForeign(t *testing.T, kid string, claims Claims) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return sign(t, key, kid, claims)
}

func sign(t *testing.T, key *rsa.PrivateKey, kid string, claims Claims) string {
	t.Helper()

	opts := (&jose.SignerOptions{}).WithType("JWT")
	if kid != "" {
		opts = opts.WithHeader(jose.HeaderKey("kid"), kid)
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, opts)
	require.NoError(t, err)

	raw, err := jwt.Signed(signer).Claims(claims).Serialize()
	require.NoError(t, err)

	return raw
}
