package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/patrickmn/go-cache"

	slogctx "github.com/veqryn/slog-context"
)

const (
	cacheKeyConfiguration = "configuration"
	cacheKeyKeySet        = "jwks"
)

var ErrMissingJwksURI = errors.New("jwks_uri not found in the openid configuration")

// KeySource fetches the discovery document and the key set it points to.
// Both are cached for the configured TTL.
type KeySource struct {
	discoveryURL string
	httpClient   *http.Client
	cache        *cache.Cache
}

func NewKeySource(discoveryURL string, ttl time.Duration, httpClient *http.Client) *KeySource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &KeySource{
		discoveryURL: discoveryURL,
		httpClient:   httpClient,
		cache:        cache.New(ttl, 2*ttl),
	}
}

// Configuration returns the discovery document.
func (s *KeySource) Configuration(ctx context.Context) (Configuration, error) {
	if cached, ok := s.cache.Get(cacheKeyConfiguration); ok {
		return cached.(Configuration), nil
	}

	var conf Configuration
	if err := s.getJSON(ctx, s.discoveryURL, &conf); err != nil {
		return Configuration{}, fmt.Errorf("getting openid configuration: %w", err)
	}

	s.cache.SetDefault(cacheKeyConfiguration, conf)

	return conf, nil
}

// KeySet returns the signing keys of the provider.
func (s *KeySource) KeySet(ctx context.Context) (*jose.JSONWebKeySet, error) {
	if cached, ok := s.cache.Get(cacheKeyKeySet); ok {
		return cached.(*jose.JSONWebKeySet), nil
	}

	conf, err := s.Configuration(ctx)
	if err != nil {
		return nil, err
	}
	if conf.JwksURI == "" {
		return nil, ErrMissingJwksURI
	}

	var keySet jose.JSONWebKeySet
	if err := s.getJSON(ctx, conf.JwksURI, &keySet); err != nil {
		return nil, fmt.Errorf("getting jwks: %w", err)
	}

	slogctx.Debug(ctx, "Fetched signing keys", "jwks_uri", conf.JwksURI, "keys", len(keySet.Keys))
	s.cache.SetDefault(cacheKeyKeySet, &keySet)

	return &keySet, nil
}

// Flush drops the cached documents, the next call fetches them again.
func (s *KeySource) Flush() {
	s.cache.Flush()
}

func (s *KeySource) getJSON(ctx context.Context, uri string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return fmt.Errorf("creating a new HTTP request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing an http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, uri)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
