package interfaces

import (
	"context"
)

// MediaCache re-hosts transient remote media to durable storage.
type MediaCache interface {
	// Cache downloads remoteURL and uploads it under a tenant-scoped path,
	// returning a public non-expiring URL. On any failure it returns "",
	// never the original remote URL. Re-caching an already-durable URL
	// is a no-op returning the input unchanged.
	Cache(ctx context.Context, remoteURL, orgID, filename string) string
	// IsDurable reports whether a URL already points at durable storage
	IsDurable(url string) bool
}
