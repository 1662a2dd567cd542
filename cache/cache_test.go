package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/navigatorbuilds/elara-core/eventbus"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := New()
	c.Set("k", "v", time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestGetMissingKey(t *testing.T) {
	c := New()
	_, ok := c.Get("missing")
	require.False(t, ok)
}

func TestExpiryOnRead(t *testing.T) {
	c := New()
	c.Set("k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestInvalidateReturnsRemovedCount(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	removed := c.Invalidate("a", "b", "c")
	require.Equal(t, 2, removed)

	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestClearRemovesEverything(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Clear()
	require.Equal(t, 0, c.Stats().Entries)
}

func TestGetOrComputeCachesOnMiss(t *testing.T) {
	c := New()
	calls := 0
	compute := func() (interface{}, error) {
		calls++
		return 42, nil
	}

	v1, err := c.GetOrCompute("k", time.Minute, compute)
	require.NoError(t, err)
	require.Equal(t, 42, v1)

	v2, err := c.GetOrCompute("k", time.Minute, compute)
	require.NoError(t, err)
	require.Equal(t, 42, v2)
	require.Equal(t, 1, calls)
}

func TestStatsTracksHitsAndMisses(t *testing.T) {
	c := New()
	c.Set("k", "v", time.Minute)

	c.Get("k")
	c.Get("k")
	c.Get("missing")

	stats := c.Stats()
	require.Equal(t, int64(2), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)
}

func TestSubscribeInvalidationClearsMappedKeys(t *testing.T) {
	c := New()
	bus := eventbus.New(0)
	c.SubscribeInvalidation(bus)

	c.Set(KeyMoodState, "happy", time.Minute)
	_, err := bus.Emit("MOOD_CHANGED", nil, "test")
	require.NoError(t, err)

	_, ok := c.Get(KeyMoodState)
	require.False(t, ok)
}

func TestSubscribeInvalidationLeavesUnmappedKeysAlone(t *testing.T) {
	c := New()
	bus := eventbus.New(0)
	c.SubscribeInvalidation(bus)

	c.Set(KeyGoalList, []string{"x"}, time.Minute)
	_, err := bus.Emit("MOOD_CHANGED", nil, "test")
	require.NoError(t, err)

	_, ok := c.Get(KeyGoalList)
	require.True(t, ok)
}
