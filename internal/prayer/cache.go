package prayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/swelljoe/sunnybloom/internal/db"
)

// Storage keys, shared with earlier releases of the web client.
const (
	timesKey = "cachedPrayerTimes"
	dateKey  = "cachedDate"
)

// cacheDateLayout is the human-readable form the date is stored in, e.g. "Fri Mar 15 2024".
const cacheDateLayout = "Mon Jan 02 2006"

// KV is the durable string store behind the cache; *db.DB and *db.RedisStore satisfy it.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// CacheEntry is the last remotely fetched TimeSet and the day it was fetched on
type CacheEntry struct {
	Times TimeSet
	// ComputedFor is zero when the stored date could not be parsed.
	ComputedFor time.Time
	// RawDate is the date exactly as stored.
	RawDate string
}

// Cache is a single-slot persistent cache: every write replaces the previous entry.
// Reads never look at the stored date.
type Cache struct {
	kv KV
}

func NewCache(kv KV) *Cache {
	return &Cache{kv: kv}
}

// Write stores set as the most recent entry, computed on date
func (c *Cache) Write(ctx context.Context, set TimeSet, date time.Time) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode cached times: %w", err)
	}
	if err := c.kv.Set(ctx, timesKey, string(data)); err != nil {
		return err
	}
	return c.kv.Set(ctx, dateKey, date.Format(cacheDateLayout))
}

// Read returns the most recent entry. ok is false when nothing was ever written.
func (c *Cache) Read(ctx context.Context) (entry CacheEntry, ok bool, err error) {
	raw, err := c.kv.Get(ctx, timesKey)
	if errors.Is(err, db.ErrNotFound) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, err
	}

	if err := json.Unmarshal([]byte(raw), &entry.Times); err != nil {
		return CacheEntry{}, false, fmt.Errorf("decode cached times: %w", err)
	}

	// the date is informational only
	if rawDate, err := c.kv.Get(ctx, dateKey); err == nil {
		entry.RawDate = rawDate
		if t, err := time.Parse(cacheDateLayout, rawDate); err == nil {
			entry.ComputedFor = t
		}
	}
	return entry, true, nil
}
