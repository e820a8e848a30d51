package oidc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/b2c-auth-demo/internal/serviceerr"
)

// ErrKeySource is returned when the signing keys could not be obtained.
var ErrKeySource = errors.New("getting public keys of the identity provider")

// Verifier validates access tokens issued by a B2C user flow.
type Verifier struct {
	keys     *KeySource
	issuer   string
	audience string
	leeway   time.Duration
}

func NewVerifier(keys *KeySource, issuer, audience string) *Verifier {
	return &Verifier{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
		leeway:   jwt.DefaultLeeway,
	}
}

// Verify checks signature, issuer, audience and expiry of raw and returns all
// of its claims.
//
// Errors wrap ErrKeySource when the keys are unavailable,
// serviceerr.ErrInvalidToken when the token has no key id,
// serviceerr.ErrUnknownKey when no key matches it, even after fetching the
// keys again. Any other error means the
// token is malformed, badly signed or expired.
func (v *Verifier) Verify(ctx context.Context, raw string) (map[string]any, error) {
	keySet, err := v.keys.KeySet(ctx)
	if err != nil {
		return nil, errors.Join(ErrKeySource, err)
	}

	token, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.RS256})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	if len(token.Headers) == 0 || token.Headers[0].KeyID == "" {
		return nil, serviceerr.ErrInvalidToken
	}

	kid := token.Headers[0].KeyID
	keys := keySet.Key(kid)
	if len(keys) == 0 {
		// the provider may have rotated its keys since they were cached
		slogctx.Debug(ctx, "Refetching signing keys for unknown key id", "kid", kid)
		v.keys.Flush()

		keySet, err = v.keys.KeySet(ctx)
		if err != nil {
			return nil, errors.Join(ErrKeySource, err)
		}

		keys = keySet.Key(kid)
		if len(keys) == 0 {
			return nil, serviceerr.ErrUnknownKey
		}
	}

	var standardClaims jwt.Claims
	var claims map[string]any
	if err := token.Claims(keys[0].Key, &standardClaims, &claims); err != nil {
		return nil, fmt.Errorf("verifying signature: %w", err)
	}

	expected := jwt.Expected{
		Issuer:      v.issuer,
		AnyAudience: jwt.Audience{v.audience},
		Time:        time.Now(),
	}
	if err := standardClaims.ValidateWithLeeway(expected, v.leeway); err != nil {
		return nil, err
	}

	return claims, nil
}
