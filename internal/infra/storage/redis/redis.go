// Package redis holds the Redis-backed helpers: connection setup and the
// unique viewer fast path.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wanderlust/internal/app/policies"
)

// Connect creates a client and verifies it with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: connect %s: %w", addr, err)
	}
	return rdb, nil
}

// ViewDeduper keeps one set of viewer fingerprints per listing. The listing
// repository stays the source of truth; this only saves its writes.
type ViewDeduper struct {
	Client *redis.Client
	// TTL bounds how long a set lives without new views.
	TTL    time.Duration
	Prefix string
}

func (d *ViewDeduper) MarkSeen(ctx context.Context, listingID, fingerprint string) (bool, error) {
	key := d.key(listingID)
	pipe := d.Client.TxPipeline()
	added := pipe.SAdd(ctx, key, fingerprint)
	pipe.Expire(ctx, key, d.ttl())
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: mark view: %w", err)
	}
	return added.Val() > 0, nil
}

// Forget drops the set, e.g. when the listing is deleted.
func (d *ViewDeduper) Forget(ctx context.Context, listingID string) error {
	return d.Client.Del(ctx, d.key(listingID)).Err()
}

func (d *ViewDeduper) key(listingID string) string {
	prefix := d.Prefix
	if prefix == "" {
		prefix = "wanderlust:views:"
	}
	return prefix + listingID
}

func (d *ViewDeduper) ttl() time.Duration {
	if d.TTL <= 0 {
		return 30 * 24 * time.Hour
	}
	return d.TTL
}

var _ policies.ViewDeduper = (*ViewDeduper)(nil)
