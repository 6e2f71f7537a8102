// Package dedup suppresses re-delivered EKE records using a bounded,
// insertion-ordered cache of content hashes.
package dedup

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
)

// Capacity is the cache's maximum resident hash count (spec: 20,000).
const Capacity = 20_000

// Cache deduplicates decoded records by a stable hash of their flat
// content. It wraps lru.Cache, whose default (non-LFU) eviction order is
// insertion order: the oldest-added entry is evicted first, exactly the
// ordering the dedup policy requires.
type Cache struct {
	lru *lru.Cache[uint64, struct{}]
}

// NewCache builds a Cache with the given capacity. A non-positive capacity
// falls back to Capacity.
func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = Capacity
	}
	c, err := lru.New[uint64, struct{}](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Admit reports whether msg has already been seen. On first sight it
// records the hash and returns false (the caller should emit the
// record); on a repeat it returns true (the caller should emit null).
func (c *Cache) Admit(msg *eke.Msg) bool {
	h := ContentHash(msg)
	if c.lru.Contains(h) {
		return true
	}
	c.lru.Add(h, struct{}{})
	return false
}

// Len returns the number of hashes currently resident.
func (c *Cache) Len() int {
	return c.lru.Len()
}
