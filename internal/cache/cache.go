/**
 * Copyright 2025-present Star Economy Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cache provides the read-through account cache sitting in front of
// the ledger store. The discipline is invalidate-after-write: every
// successful mutation evicts the account's entry immediately after the store
// commit, never before, so a concurrent reader cannot repopulate the cache
// with the pre-write value.
package cache

import (
	"context"
	"sync"
	"time"

	"star-economy-go/internal/models"

	"golang.org/x/sync/singleflight"
)

// Loader is the narrow read side of the ledger store the cache needs.
type Loader interface {
	GetAccount(ctx context.Context, accountId string) (*models.Account, error)
}

type entry struct {
	account  models.Account
	cachedAt time.Time
}

// AccountCache is a TTL read-through cache keyed by account id. It is an
// injected instance with an explicit lifecycle, not a package global, so
// tests run against isolated caches. It never serves an entry past its TTL
// and never fabricates an account when the loader fails.
type AccountCache struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
	// gens counts invalidations per key. A load that started before an
	// invalidation must not populate the cache after it; comparing the
	// generation before and after the load catches exactly that window.
	gens map[string]uint64
}

func New(loader Loader, ttl time.Duration) *AccountCache {
	return &AccountCache{
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
	}
}

// NewWithClock is New with an injectable clock for TTL tests.
func NewWithClock(loader Loader, ttl time.Duration, now func() time.Time) *AccountCache {
	c := New(loader, ttl)
	c.now = now
	return c
}

// Read returns the cached account if its TTL has not elapsed, loading and
// caching it otherwise. Concurrent misses for one account collapse into a
// single store load.
func (c *AccountCache) Read(ctx context.Context, accountId string) (*models.Account, error) {
	c.mu.Lock()
	if e, ok := c.entries[accountId]; ok && c.now().Sub(e.cachedAt) < c.ttl {
		acc := e.account
		c.mu.Unlock()
		return &acc, nil
	}
	gen := c.gens[accountId]
	c.mu.Unlock()

	v, err, _ := c.group.Do(accountId, func() (any, error) {
		acc, err := c.loader.GetAccount(ctx, accountId)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gens[accountId] == gen {
			c.entries[accountId] = entry{account: *acc, cachedAt: c.now()}
		}
		c.mu.Unlock()
		return acc, nil
	})
	if err != nil {
		return nil, err
	}

	acc := *(v.(*models.Account))
	return &acc, nil
}

// ReadFresh bypasses the cache entirely. Operations that display a balance
// right after mutating it, and operations whose correctness depends on the
// latest value, read through here.
func (c *AccountCache) ReadFresh(ctx context.Context, accountId string) (*models.Account, error) {
	return c.loader.GetAccount(ctx, accountId)
}

// Invalidate unconditionally evicts the account's entry. Called in the same
// logical operation, immediately after a successful store mutation.
func (c *AccountCache) Invalidate(accountId string) {
	c.mu.Lock()
	delete(c.entries, accountId)
	c.gens[accountId]++
	c.mu.Unlock()
	// An in-flight load holds the pre-write value; make the next miss load
	// for itself instead of joining it.
	c.group.Forget(accountId)
}

// Purge drops every entry.
func (c *AccountCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.entries {
		delete(c.entries, id)
		c.gens[id]++
	}
}

// Len reports the number of resident entries, expired or not.
func (c *AccountCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
