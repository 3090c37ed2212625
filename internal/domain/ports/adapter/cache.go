package adapter

import "context"

// CacheInvalidator drops read caches after promotion state changes so listing
// reads never observe stale boost placement. Calls must be safe to repeat and
// failures are logged and swallowed by callers: read staleness is preferable to
// blocking a payment transition.
type CacheInvalidator interface {
	// InvalidateHomepage evicts every entry under the homepage-products namespace
	// (prefix match — results are cached per page-size variant, not one key).
	InvalidateHomepage(ctx context.Context) error
	// InvalidateAllProducts additionally evicts every product-scoped entry.
	// Reused by moderation flows outside this service.
	InvalidateAllProducts(ctx context.Context) error
}
