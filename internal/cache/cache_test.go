package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"randevu/internal/model"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(NewClient(mr.Addr(), "", 0), ttl)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

var (
	general = model.ProfileSettings{Code: model.ProfileGeneral, MaxSlotAppointment: 3, Duration: 60}
	vip     = model.ProfileSettings{Code: model.ProfileVIP, MaxSlotAppointment: 2, Duration: 60}
)

func TestCache_Availability(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)

	view := model.DayAvailability{
		Date:          "2025-02-15",
		Available:     []int{11, 12},
		Occupied:      []int{13},
		DeliveryCount: 2,
		DataVersion:   5,
	}
	require.NoError(t, c.SetAvailability(ctx, general, model.TypeDelivery, view))

	got, ok := c.GetAvailability(ctx, 5, "2025-02-15", general, model.TypeDelivery)
	require.True(t, ok)
	assert.Equal(t, view, got)

	_, ok = c.GetAvailability(ctx, 6, "2025-02-15", general, model.TypeDelivery)
	assert.False(t, ok, "a newer version misses")

	_, ok = c.GetAvailability(ctx, 5, "2025-02-15", vip, model.TypeDelivery)
	assert.False(t, ok)

	tighter := general
	tighter.MaxSlotAppointment = 1
	_, ok = c.GetAvailability(ctx, 5, "2025-02-15", tighter, model.TypeDelivery)
	assert.False(t, ok, "changed settings miss")

	mr.FastForward(2 * time.Minute)
	_, ok = c.GetAvailability(ctx, 5, "2025-02-15", general, model.TypeDelivery)
	assert.False(t, ok, "entries expire")
}

func TestCache_DegradedIsNotStored(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)

	require.NoError(t, c.SetAvailability(ctx, general, "", model.DayAvailability{
		Date: "2025-02-15", Degraded: true, DataVersion: 1,
	}))
	assert.Empty(t, mr.Keys())
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, 0)

	require.NoError(t, c.SetAvailability(ctx, general, "", model.DayAvailability{Date: "2025-02-15"}))
	_, ok := c.GetAvailability(ctx, 0, "2025-02-15", general, "")
	assert.False(t, ok)
	assert.Empty(t, mr.Keys())

	var nilCache *Cache
	_, ok = nilCache.GetAvailability(ctx, 0, "2025-02-15", general, "")
	assert.False(t, ok)
	assert.NoError(t, nilCache.SetVersion(ctx, 1))
	assert.NoError(t, nilCache.Ping(ctx))
}

func TestCache_RedisDownIsAMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	_, ok := c.GetAvailability(ctx, 1, "2025-02-15", general, "")
	assert.False(t, ok)
	assert.Error(t, c.Ping(ctx))
}

func TestCache_VersionIsMonotonic(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	v, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	require.NoError(t, c.SetVersion(ctx, 4))
	require.NoError(t, c.SetVersion(ctx, 2))

	v, err = c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	require.NoError(t, c.SetVersion(ctx, 9))
	v, err = c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)
}
