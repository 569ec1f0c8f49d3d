package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"randevu/internal/model"
)

const (
	keyPrefix  = "randevu:"
	versionKey = keyPrefix + "data_version"
)

// setIfGreater keeps the mirrored version monotonic across writers.
var setIfGreater = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local incoming = tonumber(ARGV[1])
if incoming > current then
	redis.call('SET', KEYS[1], ARGV[1])
	return incoming
end
return current
`)

// Cache stores availability views keyed by data version, so a commit invalidates every
// entry without explicit deletes. Entries also expire after ttl.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient builds a Redis client from connection settings.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// availabilityKey includes the profile fingerprint: a settings reload does not bump the version.
func availabilityKey(version int64, date string, profile model.ProfileSettings, typ model.AppointmentType) string {
	return fmt.Sprintf("%savailability:%d:%s:%s:%s", keyPrefix, version, date, profile.Fingerprint(), typ)
}

// GetAvailability returns a cached view for the exact version and profile settings.
// Any Redis failure is a miss.
func (c *Cache) GetAvailability(ctx context.Context, version int64, date string, profile model.ProfileSettings, typ model.AppointmentType) (model.DayAvailability, bool) {
	var out model.DayAvailability
	if c == nil || c.client == nil || c.ttl <= 0 {
		return out, false
	}

	val, err := c.client.Get(ctx, availabilityKey(version, date, profile, typ)).Bytes()
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(val, &out); err != nil {
		return out, false
	}
	return out, true
}

// SetAvailability stores a view. Degraded views are never cached.
func (c *Cache) SetAvailability(ctx context.Context, profile model.ProfileSettings, typ model.AppointmentType, a model.DayAvailability) error {
	if c == nil || c.client == nil || c.ttl <= 0 || a.Degraded {
		return nil
	}

	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, availabilityKey(a.DataVersion, a.Date, profile, typ), data, c.ttl).Err()
}

// SetVersion mirrors v unless a newer version is already stored.
func (c *Cache) SetVersion(ctx context.Context, v int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return setIfGreater.Run(ctx, c.client, []string{versionKey}, v).Err()
}

// Version returns the mirrored data version, zero when none was published yet.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}

	val, err := c.client.Get(ctx, versionKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
