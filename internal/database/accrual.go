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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"star-economy-go/internal/models"
	"star-economy-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ListActiveMiners returns every account with an active miner. The scheduler
// computes each payout from this snapshot; ApplyAccrual re-validates it.
func (s *Service) ListActiveMiners(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, queryListActiveMiners)
	if err != nil {
		return nil, unavailable("list active miners", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var accounts []models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, unavailable("list active miners", err)
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list active miners", err)
	}
	return accounts, nil
}

// ApplyAccrual credits one miner payout. The reward, the miner totals, and
// the clock advance commit together; the ExpectedLastReward precondition
// makes a payout computed from a stale snapshot a no-op error instead of a
// double credit. last_reward_at advances by the paid whole units only, so
// the fractional remainder stays banked for the next tick.
func (s *Service) ApplyAccrual(ctx context.Context, params store.AccrualParams) (*models.Account, error) {
	if params.Reward.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("apply accrual: reward must be positive, got %s", params.Reward)
	}
	if params.Advance <= 0 {
		return nil, fmt.Errorf("apply accrual: advance must be positive, got %v", params.Advance)
	}

	var acc *models.Account
	now := time.Now()

	err := s.withTx(ctx, "apply accrual", func(tx *sql.Tx) error {
		var err error
		acc, err = getAccountTx(ctx, tx, params.AccountId)
		if err != nil {
			return err
		}
		if !acc.Miner.Active {
			return fmt.Errorf("account %s: %w", acc.Id, store.ErrMinerInactive)
		}
		if !acc.Miner.LastRewardAt.Equal(params.ExpectedLastReward) {
			return fmt.Errorf("account %s accrual base moved from %s to %s: %w",
				acc.Id, params.ExpectedLastReward.Format(time.RFC3339),
				acc.Miner.LastRewardAt.Format(time.RFC3339), store.ErrVersionConflict)
		}

		before := acc.StarBalance
		acc.StarBalance = acc.StarBalance.Add(params.Reward)
		acc.Miner.TotalEarned = acc.Miner.TotalEarned.Add(params.Reward)
		acc.Miner.LastRewardAt = acc.Miner.LastRewardAt.Add(params.Advance)

		if err := appendLedgerEntryTx(ctx, tx, acc.Id, models.CurrencyStars, "mining_accrual",
			params.Reward, before, acc.StarBalance, "", now); err != nil {
			return err
		}
		return updateAccountTx(ctx, tx, acc, now)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}
