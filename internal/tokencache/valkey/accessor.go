// Package tokencachevalkey persists the serialized MSAL token cache in ValKey
// so that a signed in account survives restarts of the web UI.
package tokencachevalkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/b2c-auth-demo/internal/serviceerr"
)

type ObjectType string

const objectTypeMSAL ObjectType = "msal"

// defaultPartition is used when MSAL does not suggest a partition key, which
// is the case for public clients.
const defaultPartition = "default"

var (
	ErrLoadCache   = errors.New("loading token cache from store")
	ErrExportCache = errors.New("exporting token cache into store")
)

type Accessor struct {
	store *store
}

var _ cache.ExportReplace = (*Accessor)(nil)

func NewAccessor(valkeyClient valkey.Client, prefix string) *Accessor {
	return &Accessor{
		store: newStore(valkeyClient, prefix),
	}
}

// Replace implements cache.ExportReplace. A missing entry leaves the in memory
// cache untouched.
func (a *Accessor) Replace(ctx context.Context, u cache.Unmarshaler, hints cache.ReplaceHints) error {
	data, err := a.store.Get(ctx, objectTypeMSAL, partition(hints.PartitionKey))
	if errors.Is(err, serviceerr.ErrNotFound) {
		slogctx.Debug(ctx, "No token cache stored yet", "partition", partition(hints.PartitionKey))
		return nil
	}
	if err != nil {
		return errors.Join(ErrLoadCache, err)
	}

	if err := u.Unmarshal(data); err != nil {
		return fmt.Errorf("unmarshaling token cache: %w", err)
	}

	return nil
}

// Export implements cache.ExportReplace.
func (a *Accessor) Export(ctx context.Context, m cache.Marshaler, hints cache.ExportHints) error {
	data, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling token cache: %w", err)
	}

	if err := a.store.Set(ctx, objectTypeMSAL, partition(hints.PartitionKey), data); err != nil {
		return errors.Join(ErrExportCache, err)
	}

	return nil
}

func partition(key string) string {
	if key == "" {
		return defaultPartition
	}
	return key
}
