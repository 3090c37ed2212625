package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"marketplace-forfait-service/internal/domain/model"
	"marketplace-forfait-service/internal/domain/ports/repository"
	"marketplace-forfait-service/internal/infra/metrics"
	red "marketplace-forfait-service/internal/infra/redis"
)

var _ repository.ForfaitRepository = (*forfaitRepoCacheDecorator)(nil)

// forfaitRepoCacheDecorator is a read-through cache over the forfait catalog.
// The catalog is read-only at runtime, so a generous TTL is fine; Save (used by
// provisioning only) invalidates.
type forfaitRepoCacheDecorator struct {
	inner repository.ForfaitRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewForfaitRepoCacheDecorator(inner repository.ForfaitRepository, cache red.RedisClient) repository.ForfaitRepository {
	return &forfaitRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   1 * time.Hour,
	}
}

func (d *forfaitRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Forfait, error) {
	// Inside a transaction, read the source of truth.
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := fmt.Sprintf("forfait:%s", id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("forfait", "hit")
		var f model.Forfait
		if json.Unmarshal([]byte(val), &f) == nil {
			return &f, nil
		}
	} else if err != redis.Nil {
		// Redis trouble: fall through to the database.
	}

	metrics.IncCacheRequest("forfait", "miss")
	f, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if f != nil {
		bytes, _ := json.Marshal(f)
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return f, nil
}

func (d *forfaitRepoCacheDecorator) FindByType(ctx context.Context, tx repository.Tx, t model.ForfaitType) (*model.Forfait, error) {
	return d.inner.FindByType(ctx, tx, t)
}

func (d *forfaitRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Forfait, error) {
	key := "forfaits:all"
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("forfait_list", "hit")
		var forfaits []*model.Forfait
		if json.Unmarshal([]byte(val), &forfaits) == nil {
			return forfaits, nil
		}
	}

	metrics.IncCacheRequest("forfait_list", "miss")
	forfaits, err := d.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(forfaits) > 0 {
		bytes, _ := json.Marshal(forfaits)
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return forfaits, nil
}

// Save invalidates; provisioning writes go straight through.
func (d *forfaitRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, f *model.Forfait) error {
	_ = d.cache.Del(ctx, fmt.Sprintf("forfait:%s", f.ID), "forfaits:all")
	return d.inner.Save(ctx, tx, f)
}
