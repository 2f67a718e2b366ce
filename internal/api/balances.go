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

package api

import (
	"context"

	"star-economy-go/internal/models"
	"star-economy-go/internal/store"
)

// Account returns the account through the cache. Use for displays that can
// tolerate a value up to one TTL old (menus, periodic refreshes).
func (s *EconomyService) Account(ctx context.Context, accountId string) (*models.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.cache.Read(ctx, accountId)
}

// Profile returns the account bypassing the cache. Any view rendered in
// direct response to a mutation reads here, so the user always sees the
// balance their action produced.
func (s *EconomyService) Profile(ctx context.Context, accountId string) (*models.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.cache.ReadFresh(ctx, accountId)
}

// Reserve returns the current exchange reserve pool.
func (s *EconomyService) Reserve(ctx context.Context) (*models.ReservePool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetReserve(ctx)
}

// Leaderboard returns the top accounts by lifetime earned coins.
func (s *EconomyService) Leaderboard(ctx context.Context, limit int) ([]store.LeaderboardEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.TopAccounts(ctx, limit)
}

// History returns the account's audit-trail entries, newest first.
func (s *EconomyService) History(ctx context.Context, accountId string, limit, offset int) ([]models.LedgerEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetLedgerHistory(ctx, accountId, limit, offset)
}
