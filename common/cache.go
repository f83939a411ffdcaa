package common

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is an abstract cache layer
type Cache interface {
	Add(key []byte, value interface{}) error
	Get(key []byte) (value interface{}, ok bool)
	Set(key []byte, value interface{}) error
}

// GoCache is the caching layer implemented by go-cache.
type GoCache struct {
	*gocache.Cache
}

// NewGoCache creates a go-cache cache with a given default expiration
// duration and cleanup interval.
func NewGoCache(defaultExpiration, cleanupInterval time.Duration) *GoCache {
	return &GoCache{
		Cache: gocache.New(defaultExpiration, cleanupInterval),
	}
}

// Add adds an item to the cache only if an item doesn't already exist for
// the given key, or if the existing item has expired.
func (gc *GoCache) Add(key []byte, value interface{}) error {
	return gc.Cache.Add(string(key), value, gocache.DefaultExpiration)
}

// Get gets an item from the cache, and a bool indicating whether the key
// was found.
func (gc *GoCache) Get(key []byte) (interface{}, bool) {
	return gc.Cache.Get(string(key))
}

// Set adds an item to the cache, replacing any existing item, using the
// default expiration.
func (gc *GoCache) Set(key []byte, value interface{}) error {
	gc.Cache.SetDefault(string(key), value)
	return nil
}
