//go:build !integration

package redis

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// fakeRedis is an in-memory stand-in for the real client.
type fakeRedis struct {
	mu    sync.Mutex
	store map[string]string
}

var _ RedisClient = (*fakeRedis)(nil)

func newFakeRedis(keys ...string) *fakeRedis {
	f := &fakeRedis{store: make(map[string]string)}
	for _, k := range keys {
		f.store[k] = "cached"
	}
	return f
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = value.(string)
	return nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.store[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.store, k)
	}
	return nil
}

func (f *fakeRedis) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var out []string
	for k := range f.store {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeRedis) Close() error { return nil }

func (f *fakeRedis) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.store[key]
	return ok
}

func newInvalidator(client RedisClient) *ProductCacheInvalidator {
	l := zerolog.Nop()
	return NewProductCacheInvalidator(client, &l)
}

func TestProductCacheInvalidator(t *testing.T) {
	ctx := context.Background()

	t.Run("homepage invalidation sweeps every page-size variant", func(t *testing.T) {
		cli := newFakeRedis(
			"homepage_products:limit=8",
			"homepage_products:limit=24",
			"product:abc",
		)
		inv := newInvalidator(cli)

		if err := inv.InvalidateHomepage(ctx); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if cli.has("homepage_products:limit=8") || cli.has("homepage_products:limit=24") {
			t.Error("homepage entries must be gone")
		}
		if !cli.has("product:abc") {
			t.Error("product entries must survive a homepage-only invalidation")
		}
	})

	t.Run("full invalidation also drops product entries", func(t *testing.T) {
		cli := newFakeRedis(
			"homepage_products:limit=8",
			"product:abc",
			"product:def",
			"forfait:catalog", // unrelated namespace
		)
		inv := newInvalidator(cli)

		if err := inv.InvalidateAllProducts(ctx); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if cli.has("product:abc") || cli.has("product:def") || cli.has("homepage_products:limit=8") {
			t.Error("product and homepage entries must be gone")
		}
		if !cli.has("forfait:catalog") {
			t.Error("unrelated namespaces must be untouched")
		}
	})

	t.Run("empty keyspace is a no-op", func(t *testing.T) {
		inv := newInvalidator(newFakeRedis())
		if err := inv.InvalidateHomepage(ctx); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
	})
}
