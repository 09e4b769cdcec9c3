/*
SPDX-License-Identifier: Apache-2.0

Copyright 2026 ConfVault

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cache provides named in-memory cache regions with TTL and LRU
// eviction. Values are stored as opaque snapshots; callers must not mutate
// what they put in or get out.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// Region names. Writers invalidate them through Invalidator; readers populate
// them on miss.
const (
	RegionConfigContent   = "config-content"
	RegionCommitHistory   = "commit-history"
	RegionLatestCommit    = "latest-commit"
	RegionCommitDetails   = "commit-details"
	RegionVaultSecrets    = "vault-secrets"
	RegionNamespaces      = "namespaces"
	RegionDirectoryList   = "directory-listing"
	RegionNamespaceEvents = "namespace-events"
	RegionNamespaceNotify = "namespace-notifications"
)

// entry is one cached value with its storage timestamp.
type entry struct {
	value    any
	storedAt time.Time
}

// Region is a bounded key-value region with TTL and LRU eviction.
type Region struct {
	mu sync.Mutex

	entries map[string]*entry

	// lruList maintains recency order; lruMap gives O(1) element lookup.
	lruList *list.List
	lruMap  map[string]*list.Element

	ttl        time.Duration
	maxEntries int

	onEviction func()
}

func newRegion(ttl time.Duration, maxEntries int, onEviction func()) *Region {
	return &Region{
		entries:    make(map[string]*entry),
		lruList:    list.New(),
		lruMap:     make(map[string]*list.Element),
		ttl:        ttl,
		maxEntries: maxEntries,
		onEviction: onEviction,
	}
}

// Get returns the cached value for key, or false if absent or expired.
// Expired entries are removed during lookup.
func (r *Region) Get(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[key]
	if !exists {
		return nil, false
	}
	if time.Since(e.storedAt) > r.ttl {
		r.remove(key)
		if r.onEviction != nil {
			r.onEviction()
		}
		return nil, false
	}
	r.lruList.MoveToFront(r.lruMap[key])
	return e.value, true
}

// Put stores value under key, evicting the least recently used entry when
// the region is at capacity.
func (r *Region) Put(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; exists {
		r.entries[key] = &entry{value: value, storedAt: time.Now()}
		r.lruList.MoveToFront(r.lruMap[key])
		return
	}

	if len(r.entries) >= r.maxEntries {
		r.evictLRU()
	}

	r.entries[key] = &entry{value: value, storedAt: time.Now()}
	r.lruMap[key] = r.lruList.PushFront(key)
}

// EvictKey removes a single key.
func (r *Region) EvictKey(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(key)
}

// EvictAll clears the region.
func (r *Region) EvictAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*entry)
	r.lruList = list.New()
	r.lruMap = make(map[string]*list.Element)
}

// EvictByPrefix removes every key starting with prefix. Linear scan; regions
// are small enough (hundreds of entries) that this is fine.
func (r *Region) EvictByPrefix(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key := range r.entries {
		if strings.HasPrefix(key, prefix) {
			r.remove(key)
			evicted++
		}
	}
	return evicted
}

// EvictBySuffix removes every key ending with suffix. Used for composite
// keys whose namespace component sits at the end.
func (r *Region) EvictBySuffix(suffix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key := range r.entries {
		if strings.HasSuffix(key, suffix) {
			r.remove(key)
			evicted++
		}
	}
	return evicted
}

// Size returns the current entry count.
func (r *Region) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// evictLRU removes the least recently used entry. Caller holds the lock.
func (r *Region) evictLRU() {
	oldest := r.lruList.Back()
	if oldest == nil {
		return
	}
	key, ok := oldest.Value.(string)
	if !ok {
		return
	}
	r.remove(key)
	if r.onEviction != nil {
		r.onEviction()
	}
}

// remove deletes key from the map and LRU tracking. Caller holds the lock.
func (r *Region) remove(key string) {
	delete(r.entries, key)
	if elem, exists := r.lruMap[key]; exists {
		r.lruList.Remove(elem)
		delete(r.lruMap, key)
	}
}

// Cache is the set of named regions sharing one TTL and per-region capacity.
type Cache struct {
	mu      sync.Mutex
	regions map[string]*Region

	ttl        time.Duration
	maxEntries int

	onEviction func()
}

// New creates a cache whose regions expire entries after ttl and hold at
// most maxEntries keys each.
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		regions:    make(map[string]*Region),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// SetEvictionCallback registers a callback invoked on every TTL or LRU
// eviction, typically to bump a metric. Affects regions created afterwards.
func (c *Cache) SetEvictionCallback(callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEviction = callback
}

// Region returns the named region, creating it on first use.
func (c *Cache) Region(name string) *Region {
	c.mu.Lock()
	defer c.mu.Unlock()

	if region, exists := c.regions[name]; exists {
		return region
	}
	region := newRegion(c.ttl, c.maxEntries, c.onEviction)
	c.regions[name] = region
	return region
}

// GetOrLoad returns the cached value for key in region, or runs load and
// caches its result. The loader runs outside the region lock, so concurrent
// misses on the same key may load twice; last write wins.
func GetOrLoad[T any](region *Region, key string, load func() (T, error)) (T, error) {
	if cached, hit := region.Get(key); hit {
		if typed, ok := cached.(T); ok {
			return typed, nil
		}
	}
	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	region.Put(key, value)
	return value, nil
}
