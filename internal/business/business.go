package business

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/b2c-auth-demo/internal/backend"
	"github.com/openkcm/b2c-auth-demo/internal/business/server"
	"github.com/openkcm/b2c-auth-demo/internal/config"
	"github.com/openkcm/b2c-auth-demo/internal/identity"
	"github.com/openkcm/b2c-auth-demo/internal/identity/msal"
	"github.com/openkcm/b2c-auth-demo/internal/oidc"
	"github.com/openkcm/b2c-auth-demo/internal/session"
	tokencachevalkey "github.com/openkcm/b2c-auth-demo/internal/tokencache/valkey"
	"github.com/openkcm/b2c-auth-demo/internal/view"
)

const minCSRFSecretLength = 32

// WebMain starts the local web UI of the demo.
func WebMain(ctx context.Context, cfg *config.Config) error {
	identityCfg, err := loadIdentityConfiguration(cfg.Identity)
	if err != nil {
		return fmt.Errorf("loading identity configuration: %w", err)
	}

	csrfSecret, err := loadCSRFSecret(cfg.WebUI)
	if err != nil {
		return fmt.Errorf("loading csrf secret: %w", err)
	}

	accessor, closeFn, err := initTokenCache(cfg)
	if err != nil {
		return fmt.Errorf("initialising the token cache: %w", err)
	}
	defer closeFn()

	client, err := msal.New(identityCfg, accessor)
	if err != nil {
		return fmt.Errorf("creating identity client: %w", err)
	}

	provider := session.NewProvider(identityCfg, client)
	v := view.New(provider, backend.NewClient(cfg.Backend.Endpoint, cfg.Backend.Timeout, nil))

	slogctx.Info(ctx, "Starting the web UI",
		"authority", identityCfg.Authority,
		"backend", cfg.Backend.Endpoint,
		"token_cache", cfg.TokenCache.Type,
	)

	return server.StartWebServer(ctx, cfg, v, csrfSecret)
}

// APIServerMain starts the protected demo backend.
func APIServerMain(ctx context.Context, cfg *config.Config) error {
	verifier, err := newVerifier(cfg.APIServer)
	if err != nil {
		return err
	}

	slogctx.Info(ctx, "Starting the api server",
		"issuer", cfg.APIServer.Issuer,
		"allowed_origins", cfg.APIServer.AllowedOrigins,
	)

	return server.StartAPIServer(ctx, cfg, verifier)
}

func newVerifier(cfg config.APIServer) (*oidc.Verifier, error) {
	var errs []error
	if cfg.DiscoveryURL == "" {
		errs = append(errs, errors.New("apiServer.discoveryURL is required"))
	}
	if cfg.Issuer == "" {
		errs = append(errs, errors.New("apiServer.issuer is required"))
	}
	if cfg.Audience == "" {
		errs = append(errs, errors.New("apiServer.audience is required"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	keys := oidc.NewKeySource(cfg.DiscoveryURL, cfg.KeyCacheTTL, nil)

	return oidc.NewVerifier(keys, cfg.Issuer, cfg.Audience), nil
}

func loadIdentityConfiguration(cfg config.Identity) (identity.Configuration, error) {
	clientID, err := commoncfg.LoadValueFromSourceRef(cfg.ClientID)
	if err != nil {
		return identity.Configuration{}, fmt.Errorf("loading client id: %w", err)
	}

	var apiScopes []string
	if cfg.APIScope != "" {
		apiScopes = append(apiScopes, cfg.APIScope)
	}

	return identity.NewConfiguration(
		string(clientID),
		cfg.Authority,
		cfg.KnownAuthorityHosts,
		cfg.RedirectURI,
		cfg.PostLogoutRedirectURI,
		apiScopes,
	)
}

// loadCSRFSecret loads the secret signing the form tokens. Without a
// configured source a random secret is used, which invalidates open pages on
// restart.
func loadCSRFSecret(cfg config.WebUI) ([]byte, error) {
	if cfg.CSRFSecret.Source == "" {
		secret := make([]byte, minCSRFSecretLength)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generating csrf secret: %w", err)
		}
		return secret, nil
	}

	secret, err := commoncfg.LoadValueFromSourceRef(cfg.CSRFSecret)
	if err != nil {
		return nil, fmt.Errorf("loading csrf secret from source ref: %w", err)
	}
	if len(secret) < minCSRFSecretLength {
		return nil, fmt.Errorf("CSRF secret must be at least %d bytes", minCSRFSecretLength)
	}

	return secret, nil
}

// initTokenCache returns the accessor persisting the MSAL token cache. A nil
// accessor keeps the cache in memory.
func initTokenCache(cfg *config.Config) (_ cache.ExportReplace, closeFn func(), _ error) {
	switch cfg.TokenCache.Type {
	case config.TokenCacheMemory, "":
		return nil, func() {}, nil
	case config.TokenCacheValKey:
		valkeyOpts, err := config.MakeValKeyOptions(cfg.ValKey)
		if err != nil {
			return nil, nil, fmt.Errorf("making valkey options from config: %w", err)
		}

		valkeyClient, err := valkey.NewClient(valkeyOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("creating a new valkey client: %w", err)
		}

		return tokencachevalkey.NewAccessor(valkeyClient, cfg.TokenCache.KeyPrefix), valkeyClient.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown token cache type %q", cfg.TokenCache.Type)
	}
}
