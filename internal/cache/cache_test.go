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

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"star-economy-go/internal/models"

	"github.com/shopspring/decimal"
)

// countingLoader serves accounts from a map and counts store hits.
type countingLoader struct {
	mu       sync.Mutex
	accounts map[string]models.Account
	loads    int
	err      error
}

func newCountingLoader() *countingLoader {
	return &countingLoader{accounts: make(map[string]models.Account)}
}

func (l *countingLoader) put(acc models.Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[acc.Id] = acc
}

func (l *countingLoader) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func (l *countingLoader) GetAccount(_ context.Context, accountId string) (*models.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	if l.err != nil {
		return nil, l.err
	}
	acc, ok := l.accounts[accountId]
	if !ok {
		return nil, fmt.Errorf("account %s not found", accountId)
	}
	copied := acc
	return &copied, nil
}

func testAccount(id, stars string) models.Account {
	return models.Account{Id: id, StarBalance: decimal.RequireFromString(stars), Version: 1}
}

func TestRead_ServesCachedWithinTTL(t *testing.T) {
	loader := newCountingLoader()
	loader.put(testAccount("user1", "10"))
	c := New(loader, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		acc, err := c.Read(ctx, "user1")
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if !acc.StarBalance.Equal(decimal.RequireFromString("10")) {
			t.Errorf("Read %d returned stars %s", i, acc.StarBalance)
		}
	}
	if loader.loadCount() != 1 {
		t.Errorf("Expected 1 store load for 3 reads, got %d", loader.loadCount())
	}
}

func TestRead_ReloadsAfterTTL(t *testing.T) {
	loader := newCountingLoader()
	loader.put(testAccount("user1", "10"))

	now := time.Unix(1700000000, 0).UTC()
	clock := func() time.Time { return now }
	c := NewWithClock(loader, 30*time.Second, func() time.Time { return clock() })
	ctx := context.Background()

	if _, err := c.Read(ctx, "user1"); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	// The store moves on while the entry ages past its TTL.
	loader.put(testAccount("user1", "99"))
	now = now.Add(31 * time.Second)

	acc, err := c.Read(ctx, "user1")
	if err != nil {
		t.Fatalf("Read after expiry failed: %v", err)
	}
	if !acc.StarBalance.Equal(decimal.RequireFromString("99")) {
		t.Errorf("Expired entry served stale stars %s", acc.StarBalance)
	}
	if loader.loadCount() != 2 {
		t.Errorf("Expected 2 store loads, got %d", loader.loadCount())
	}
}

func TestInvalidate_ForcesReload(t *testing.T) {
	loader := newCountingLoader()
	loader.put(testAccount("user1", "10"))
	c := New(loader, time.Minute)
	ctx := context.Background()

	if _, err := c.Read(ctx, "user1"); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	// Simulate a write committing and evicting.
	loader.put(testAccount("user1", "42"))
	c.Invalidate("user1")

	acc, err := c.Read(ctx, "user1")
	if err != nil {
		t.Fatalf("Read after invalidate failed: %v", err)
	}
	if !acc.StarBalance.Equal(decimal.RequireFromString("42")) {
		t.Errorf("Read after invalidate served stale stars %s", acc.StarBalance)
	}
}

func TestReadFresh_BypassesCache(t *testing.T) {
	loader := newCountingLoader()
	loader.put(testAccount("user1", "10"))
	c := New(loader, time.Minute)
	ctx := context.Background()

	if _, err := c.Read(ctx, "user1"); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	loader.put(testAccount("user1", "77"))

	acc, err := c.ReadFresh(ctx, "user1")
	if err != nil {
		t.Fatalf("ReadFresh failed: %v", err)
	}
	if !acc.StarBalance.Equal(decimal.RequireFromString("77")) {
		t.Errorf("ReadFresh served cached stars %s", acc.StarBalance)
	}

	// The cached entry itself is untouched.
	acc, _ = c.Read(ctx, "user1")
	if !acc.StarBalance.Equal(decimal.RequireFromString("10")) {
		t.Errorf("ReadFresh overwrote the cache entry: %s", acc.StarBalance)
	}
}

func TestRead_LoaderErrorIsNotCached(t *testing.T) {
	loader := newCountingLoader()
	loader.err = errors.New("store down")
	c := New(loader, time.Minute)
	ctx := context.Background()

	if _, err := c.Read(ctx, "user1"); err == nil {
		t.Fatal("Expected loader error")
	}

	loader.mu.Lock()
	loader.err = nil
	loader.mu.Unlock()
	loader.put(testAccount("user1", "10"))

	acc, err := c.Read(ctx, "user1")
	if err != nil {
		t.Fatalf("Read after recovery failed: %v", err)
	}
	if !acc.StarBalance.Equal(decimal.RequireFromString("10")) {
		t.Errorf("Expected fresh load after error, got stars %s", acc.StarBalance)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 resident entry, got %d", c.Len())
	}
}

func TestRead_ReturnsIndependentCopies(t *testing.T) {
	loader := newCountingLoader()
	loader.put(testAccount("user1", "10"))
	c := New(loader, time.Minute)
	ctx := context.Background()

	first, err := c.Read(ctx, "user1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	first.StarBalance = decimal.RequireFromString("0")

	second, err := c.Read(ctx, "user1")
	if err != nil {
		t.Fatalf("Second read failed: %v", err)
	}
	if !second.StarBalance.Equal(decimal.RequireFromString("10")) {
		t.Errorf("Caller mutation leaked into the cache: %s", second.StarBalance)
	}
}

func TestRead_CollapsesConcurrentMisses(t *testing.T) {
	loader := newCountingLoader()
	loader.put(testAccount("user1", "10"))
	c := New(loader, time.Minute)
	ctx := context.Background()

	const readers = 8
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Read(ctx, "user1"); err != nil {
				t.Errorf("Concurrent read failed: %v", err)
			}
		}()
	}
	wg.Wait()

	// Concurrent misses may straggle across singleflight windows, but they
	// must not all hit the store.
	if loader.loadCount() >= readers {
		t.Errorf("Expected collapsed loads, got %d for %d readers", loader.loadCount(), readers)
	}
}

func TestPurge(t *testing.T) {
	loader := newCountingLoader()
	loader.put(testAccount("user1", "10"))
	loader.put(testAccount("user2", "20"))
	c := New(loader, time.Minute)
	ctx := context.Background()

	c.Read(ctx, "user1")
	c.Read(ctx, "user2")
	if c.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", c.Len())
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Expected empty cache after purge, got %d", c.Len())
	}
}
