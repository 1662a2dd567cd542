// Package cache implements the substrate's in-process TTL cache: a
// thread-safe string-keyed store with per-entry expiry checked on read,
// plus event-driven invalidation wired to the event bus.
package cache

import (
	"sync"
	"time"

	"github.com/navigatorbuilds/elara-core/eventbus"
)

// Well-known cache keys and their fixed TTLs, per the substrate's cache
// key table.
const (
	KeyMoodState      = "mood_state"
	KeyImprints       = "imprints"
	KeyPresenceStats  = "presence_stats"
	KeyMemoryCount    = "memory_count"
	KeyContextData    = "context_data"
	KeyGoalList       = "goal_list"
	KeyCorrectionIdx  = "correction_index"
	KeyLLMAvailable   = "llm_availability"
	KeyDreamStatus    = "dream_status"
)

// TTLs maps every well-known key to its fixed time-to-live.
var TTLs = map[string]time.Duration{
	KeyMoodState:     5 * time.Second,
	KeyImprints:      10 * time.Second,
	KeyPresenceStats: 30 * time.Second,
	KeyMemoryCount:   60 * time.Second,
	KeyContextData:   30 * time.Second,
	KeyGoalList:      120 * time.Second,
	KeyCorrectionIdx: 120 * time.Second,
	KeyLLMAvailable:  60 * time.Second,
	KeyDreamStatus:   300 * time.Second,
}

// invalidationMap ties event types to the cache keys they invalidate.
var invalidationMap = map[string][]string{
	"MOOD_CHANGED":        {KeyMoodState},
	"MOOD_SET":            {KeyMoodState},
	"IMPRINT_CREATED":     {KeyImprints},
	"IMPRINT_DECAYED":     {KeyImprints},
	"SESSION_STARTED":     {KeyPresenceStats},
	"SESSION_ENDED":       {KeyPresenceStats},
	"MEMORY_SAVED":        {KeyMemoryCount, KeyContextData},
	"MEMORY_CONSOLIDATED": {KeyMemoryCount, KeyContextData},
	"GOAL_ADDED":          {KeyGoalList},
	"GOAL_UPDATED":        {KeyGoalList},
	"CORRECTION_ADDED":    {KeyCorrectionIdx},
	"LLM_UNAVAILABLE":     {KeyLLMAvailable},
	"DREAM_COMPLETED":     {KeyDreamStatus},
}

type entry struct {
	value    interface{}
	deadline time.Time
}

// Stats summarizes cache activity since construction.
type Stats struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	Invalidations int64  `json:"invalidations"`
	Entries      int     `json:"entries"`
	HitRate      float64 `json:"hit_rate"`
}

// Cache is a thread-safe string-keyed TTL store. Expiry is evaluated on
// read; there is no background reaper.
type Cache struct {
	mu            sync.Mutex
	entries       map[string]entry
	hits          int64
	misses        int64
	invalidations int64
}

// New constructs an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Get returns the value stored under key and whether it is present and
// unexpired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.deadline) {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key with the given time-to-live.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, deadline: time.Now().Add(ttl)}
}

// Invalidate removes the given keys, returning the number actually present.
func (c *Cache) Invalidate(keys ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, k := range keys {
		if _, ok := c.entries[k]; ok {
			delete(c.entries, k)
			removed++
		}
	}
	c.invalidations += int64(removed)
	return removed
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Invalidations: c.invalidations,
		Entries:       len(c.entries),
		HitRate:       hitRate,
	}
}

// ComputeFunc produces a value to cache on a miss.
type ComputeFunc func() (interface{}, error)

// GetOrCompute returns the cached value for key if present, otherwise
// invokes compute outside the lock, stores its result with ttl, and
// returns it.
func (c *Cache) GetOrCompute(key string, ttl time.Duration, compute ComputeFunc) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// SubscribeInvalidation wires the cache's fixed event→key invalidation
// table onto bus, so every mapped event clears its associated keys.
func (c *Cache) SubscribeInvalidation(bus *eventbus.Bus) {
	for eventType, keys := range invalidationMap {
		keys := keys
		bus.On(eventType, func(eventbus.Event) {
			c.Invalidate(keys...)
		}, 0, "cache")
	}
}
