package objrt

import (
	"encoding/binary"

	"github.com/elastic/go-freelru"
	"github.com/zeebo/xxh3"
)

const defaultCacheSize = 4096

type cacheKey struct {
	class uint64
	sel   Selector
}

func hashCacheKey(k cacheKey) uint32 {
	var b [12]byte
	binary.LittleEndian.PutUint64(b[:8], k.class)
	binary.LittleEndian.PutUint32(b[8:], uint32(k.sel))
	return uint32(xxh3.Hash(b[:]))
}

// methodCache maps (class, selector) to the resolved implementation,
// including implementations inherited from a superclass.
type methodCache struct {
	lru *freelru.SyncedLRU[cacheKey, IMP]
}

func newMethodCache(size uint32) *methodCache {
	lru, err := freelru.NewSynced[cacheKey, IMP](size, hashCacheKey)
	if err != nil {
		// Only returned for a zero capacity or a nil hash function.
		panic(err)
	}
	return &methodCache{lru: lru}
}

func (c *methodCache) Get(k cacheKey) (IMP, bool) {
	return c.lru.Get(k)
}

func (c *methodCache) Add(k cacheKey, imp IMP) {
	c.lru.Add(k, imp)
}

func (c *methodCache) Purge() {
	c.lru.Purge()
}

func (c *methodCache) Len() int {
	return c.lru.Len()
}
