package redis

import (
	"context"

	"github.com/rs/zerolog"

	"marketplace-forfait-service/internal/domain/ports/adapter"
	"marketplace-forfait-service/internal/infra/metrics"
)

var _ adapter.CacheInvalidator = (*ProductCacheInvalidator)(nil)

// Cache namespaces shared with the main marketplace app. Homepage results are
// cached per page-size variant (homepage_products:limit=8, :limit=24, ...), so
// eviction is a prefix sweep, never a single DEL.
const (
	homepagePrefix = "homepage_products:"
	productPrefix  = "product:"
)

// ProductCacheInvalidator drops listing read caches after boost state changes.
// Every mutation path (webhook, reconciler, expiry sweep) funnels through it;
// it is safe to call redundantly and callers swallow its errors.
type ProductCacheInvalidator struct {
	client RedisClient
	log    *zerolog.Logger
}

func NewProductCacheInvalidator(client RedisClient, logger *zerolog.Logger) *ProductCacheInvalidator {
	cacheLog := logger.With().Str("component", "ProductCacheInvalidator").Logger()
	return &ProductCacheInvalidator{client: client, log: &cacheLog}
}

func (c *ProductCacheInvalidator) InvalidateHomepage(ctx context.Context) error {
	return c.dropPrefix(ctx, "homepage", homepagePrefix)
}

func (c *ProductCacheInvalidator) InvalidateAllProducts(ctx context.Context) error {
	if err := c.dropPrefix(ctx, "homepage", homepagePrefix); err != nil {
		return err
	}
	return c.dropPrefix(ctx, "product", productPrefix)
}

func (c *ProductCacheInvalidator) dropPrefix(ctx context.Context, namespace, prefix string) error {
	keys, err := c.client.ScanKeys(ctx, prefix+"*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...); err != nil {
		return err
	}
	metrics.AddCacheInvalidated(namespace, len(keys))
	c.log.Debug().Str("namespace", namespace).Int("keys", len(keys)).Msg("cache invalidated")
	return nil
}
