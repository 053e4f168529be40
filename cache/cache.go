// Package cache is a generic expiring key-value cache over a pluggable
// Store. The aggregation service and the read-mostly project helpers share
// it; writes invalidate entries explicitly, TTL expiry handles the rest.
package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTTL is applied when a caller passes a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// Namespace prefixes every key so ClearAll never touches foreign entries
// in a shared backing store.
const Namespace = "dashboard:"

// Store is the persistence medium behind the cache. Implementations only
// move raw bytes; expiry bookkeeping lives in the envelope.
type Store interface {
	Read(key string) ([]byte, error)
	Write(key string, raw []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// ErrNotFound is returned by stores for absent keys.
var ErrNotFound = fmt.Errorf("cache: key not found")

type entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	ExpiresIn int64           `json:"expiresIn"`
}

// Info describes an entry without decoding its payload.
type Info struct {
	Timestamp time.Time `json:"timestamp"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsExpired bool      `json:"isExpired"`
}

type Cache struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Cache {
	return &Cache{store: store, now: time.Now}
}

// NewWithClock injects the clock, for expiry tests.
func NewWithClock(store Store, now func() time.Time) *Cache {
	return &Cache{store: store, now: now}
}

// Set stores a JSON-serializable value under the namespaced key.
func (c *Cache) Set(key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	raw, err := json.Marshal(entry{
		Data:      data,
		Timestamp: c.now().UnixMilli(),
		ExpiresIn: ttl.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache envelope %s: %w", key, err)
	}
	return c.store.Write(Namespace+key, raw)
}

// Get decodes the entry into out. It reports false on a miss; expired and
// corrupt entries count as misses and are evicted rather than surfaced.
func (c *Cache) Get(key string, out any) (bool, error) {
	raw, err := c.store.Read(Namespace + key)
	if err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.store.Delete(Namespace + key)
		return false, nil
	}
	if c.expired(e) {
		c.store.Delete(Namespace + key)
		return false, nil
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		c.store.Delete(Namespace + key)
		return false, nil
	}
	return true, nil
}

// GetInfo reports entry metadata, or nil when the key is absent.
func (c *Cache) GetInfo(key string) (*Info, error) {
	raw, err := c.store.Read(Namespace + key)
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.store.Delete(Namespace + key)
		return nil, nil
	}
	stored := time.UnixMilli(e.Timestamp)
	return &Info{
		Timestamp: stored,
		ExpiresAt: stored.Add(time.Duration(e.ExpiresIn) * time.Millisecond),
		IsExpired: c.expired(e),
	}, nil
}

func (c *Cache) Remove(key string) error {
	return c.store.Delete(Namespace + key)
}

// ClearAll removes every entry under this cache's namespace.
func (c *Cache) ClearAll() error {
	keys, err := c.store.Keys(Namespace)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.store.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) expired(e entry) bool {
	expiresAt := time.UnixMilli(e.Timestamp).Add(time.Duration(e.ExpiresIn) * time.Millisecond)
	return !c.now().Before(expiresAt)
}
