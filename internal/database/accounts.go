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
	"errors"
	"fmt"
	"time"

	"star-economy-go/internal/models"
	"star-economy-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeFromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		acc                             models.Account
		star, coin, earned, minerEarned string
		lastFarm, lastBonus, minerLast  int64
		createdAt, updatedAt            int64
		minerActive                     int
	)
	err := row.Scan(&acc.Id, &star, &coin, &earned,
		&lastFarm, &lastBonus, &acc.DailyStreak,
		&minerActive, &minerLast, &minerEarned,
		&acc.ReferrerId, &acc.Title, &acc.Status,
		&acc.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if acc.StarBalance, err = decimal.NewFromString(star); err != nil {
		return nil, fmt.Errorf("failed to parse star balance %q: %w", star, err)
	}
	if acc.CoinBalance, err = decimal.NewFromString(coin); err != nil {
		return nil, fmt.Errorf("failed to parse coin balance %q: %w", coin, err)
	}
	if acc.TotalEarnedCoins, err = decimal.NewFromString(earned); err != nil {
		return nil, fmt.Errorf("failed to parse total earned coins %q: %w", earned, err)
	}
	if acc.Miner.TotalEarned, err = decimal.NewFromString(minerEarned); err != nil {
		return nil, fmt.Errorf("failed to parse miner total earned %q: %w", minerEarned, err)
	}

	acc.LastFarmAt = timeFromUnix(lastFarm)
	acc.LastBonusAt = timeFromUnix(lastBonus)
	acc.Miner.Active = minerActive != 0
	acc.Miner.LastRewardAt = timeFromUnix(minerLast)
	acc.CreatedAt = timeFromUnix(createdAt)
	acc.UpdatedAt = timeFromUnix(updatedAt)
	return &acc, nil
}

func getAccountTx(ctx context.Context, tx *sql.Tx, accountId string) (*models.Account, error) {
	acc, err := scanAccount(tx.QueryRowContext(ctx, queryGetAccount, accountId))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %s: %w", accountId, store.ErrAccountNotFound)
	}
	if err != nil {
		return nil, unavailable("get account", err)
	}
	return acc, nil
}

// updateAccountTx writes acc back under its version guard. Zero rows
// affected means another writer got there first.
func updateAccountTx(ctx context.Context, tx *sql.Tx, acc *models.Account, now time.Time) error {
	minerActive := 0
	if acc.Miner.Active {
		minerActive = 1
	}
	result, err := tx.ExecContext(ctx, queryUpdateAccount,
		acc.StarBalance.String(), acc.CoinBalance.String(), acc.TotalEarnedCoins.String(),
		unixOrZero(acc.LastFarmAt), unixOrZero(acc.LastBonusAt), acc.DailyStreak,
		minerActive, unixOrZero(acc.Miner.LastRewardAt), acc.Miner.TotalEarned.String(),
		acc.Title, acc.Status,
		now.Unix(),
		acc.Id, acc.Version)
	if err != nil {
		return unavailable("update account", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return unavailable("update account", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account %s at version %d: %w", acc.Id, acc.Version, store.ErrVersionConflict)
	}
	acc.Version++
	acc.UpdatedAt = now.UTC()
	return nil
}

func (s *Service) GetAccount(ctx context.Context, accountId string) (*models.Account, error) {
	acc, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccount, accountId))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %s: %w", accountId, store.ErrAccountNotFound)
	}
	if err != nil {
		return nil, unavailable("get account", err)
	}
	return acc, nil
}

// CreateAccountIfAbsent inserts a fresh account document on first
// interaction. When the insert actually creates the row and a referrer is
// named, the referral bonus is credited to the referrer in the same
// transaction; a pre-existing account makes the whole call a plain read.
// The second return reports whether the bonus was credited.
func (s *Service) CreateAccountIfAbsent(ctx context.Context, params store.CreateAccountParams) (*models.Account, bool, error) {
	var acc *models.Account
	bonusPaid := false
	now := time.Now()

	err := s.withTx(ctx, "create account", func(tx *sql.Tx) error {
		referrerId := params.ReferrerId
		if referrerId == params.AccountId {
			referrerId = ""
		}

		result, err := tx.ExecContext(ctx, queryInsertAccount, params.AccountId, referrerId, now.Unix(), now.Unix())
		if err != nil {
			return unavailable("create account", err)
		}
		created, err := result.RowsAffected()
		if err != nil {
			return unavailable("create account", err)
		}

		if created == 1 && referrerId != "" && params.ReferralBonus.IsPositive() {
			referrer, err := getAccountTx(ctx, tx, referrerId)
			if err == nil {
				before := referrer.StarBalance
				referrer.StarBalance = referrer.StarBalance.Add(params.ReferralBonus)
				if err := appendLedgerEntryTx(ctx, tx, referrer.Id, models.CurrencyStars, "referral_bonus",
					params.ReferralBonus, before, referrer.StarBalance, "referred "+params.AccountId, now); err != nil {
					return err
				}
				if err := updateAccountTx(ctx, tx, referrer, now); err != nil {
					return err
				}
				bonusPaid = true
				zap.L().Info("Referral bonus credited",
					zap.String("referrer_id", referrer.Id),
					zap.String("account_id", params.AccountId),
					zap.String("bonus", params.ReferralBonus.String()))
			} else if !errors.Is(err, store.ErrAccountNotFound) {
				return err
			}
			// Unknown referrer ids are dropped silently: the referee's
			// account creation must not fail on a bad referral link.
		}

		acc, err = getAccountTx(ctx, tx, params.AccountId)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	return acc, bonusPaid, nil
}

// AdjustBalances applies a multi-field credit/debit as one atomic document
// update. A debit that would go negative rejects the whole call with no
// mutation on any field.
func (s *Service) AdjustBalances(ctx context.Context, params store.AdjustParams) (*models.Account, error) {
	if len(params.Deltas) == 0 {
		return nil, fmt.Errorf("adjust balances: no deltas given")
	}
	var acc *models.Account
	now := time.Now()

	err := s.withTx(ctx, "adjust balances", func(tx *sql.Tx) error {
		var err error
		acc, err = getAccountTx(ctx, tx, params.AccountId)
		if err != nil {
			return err
		}

		for _, delta := range params.Deltas {
			if !delta.Currency.Valid() {
				return fmt.Errorf("adjust balances: unknown currency %q", delta.Currency)
			}
			before := acc.Balance(delta.Currency)
			after := before.Add(delta.Amount)
			if after.IsNegative() {
				return fmt.Errorf("account %s %s balance %s, delta %s: %w",
					acc.Id, delta.Currency, before, delta.Amount, store.ErrInsufficientFunds)
			}
			setBalance(acc, delta.Currency, after)
			if params.CountsAsEarned && delta.Currency == models.CurrencyCoins && delta.Amount.IsPositive() {
				acc.TotalEarnedCoins = acc.TotalEarnedCoins.Add(delta.Amount)
			}
			if err := appendLedgerEntryTx(ctx, tx, acc.Id, delta.Currency, params.EntryType,
				delta.Amount, before, after, params.Reference, now); err != nil {
				return err
			}
		}

		return updateAccountTx(ctx, tx, acc, now)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Farm pays the farm reward when the cooldown has elapsed. The cooldown
// check and the credit commit together, so a double-tapped farm button
// cannot pay twice.
func (s *Service) Farm(ctx context.Context, params store.FarmParams) (*models.Account, error) {
	var acc *models.Account

	err := s.withTx(ctx, "farm", func(tx *sql.Tx) error {
		var err error
		acc, err = getAccountTx(ctx, tx, params.AccountId)
		if err != nil {
			return err
		}

		if !acc.LastFarmAt.IsZero() && params.Now.Sub(acc.LastFarmAt) < params.Cooldown {
			return fmt.Errorf("farm ready at %s: %w",
				acc.LastFarmAt.Add(params.Cooldown).Format(time.RFC3339), store.ErrCooldownActive)
		}

		before := acc.Balance(params.Currency)
		after := before.Add(params.Reward)
		setBalance(acc, params.Currency, after)
		if params.Currency == models.CurrencyCoins {
			acc.TotalEarnedCoins = acc.TotalEarnedCoins.Add(params.Reward)
		}
		acc.LastFarmAt = params.Now.UTC()

		if err := appendLedgerEntryTx(ctx, tx, acc.Id, params.Currency, "farm",
			params.Reward, before, after, "", params.Now); err != nil {
			return err
		}
		return updateAccountTx(ctx, tx, acc, params.Now)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// ClaimDailyBonus pays the streak-scaled daily reward. A claim inside the
// cooldown fails; a gap beyond ResetAfter restarts the streak at 1.
func (s *Service) ClaimDailyBonus(ctx context.Context, params store.BonusParams) (*store.BonusResult, error) {
	var result *store.BonusResult

	err := s.withTx(ctx, "daily bonus", func(tx *sql.Tx) error {
		acc, err := getAccountTx(ctx, tx, params.AccountId)
		if err != nil {
			return err
		}

		if !acc.LastBonusAt.IsZero() {
			elapsed := params.Now.Sub(acc.LastBonusAt)
			if elapsed < params.Cooldown {
				return fmt.Errorf("bonus ready at %s: %w",
					acc.LastBonusAt.Add(params.Cooldown).Format(time.RFC3339), store.ErrCooldownActive)
			}
			if elapsed > params.ResetAfter {
				acc.DailyStreak = 1
			} else {
				acc.DailyStreak++
			}
		} else {
			acc.DailyStreak = 1
		}

		effective := acc.DailyStreak
		if params.StreakCap > 0 && effective > params.StreakCap {
			effective = params.StreakCap
		}
		reward := params.BaseReward.Add(params.PerStreak.Mul(decimal.NewFromInt(int64(effective - 1))))

		before := acc.Balance(params.Currency)
		after := before.Add(reward)
		setBalance(acc, params.Currency, after)
		if params.Currency == models.CurrencyCoins {
			acc.TotalEarnedCoins = acc.TotalEarnedCoins.Add(reward)
		}
		acc.LastBonusAt = params.Now.UTC()

		if err := appendLedgerEntryTx(ctx, tx, acc.Id, params.Currency, "daily_bonus",
			reward, before, after, fmt.Sprintf("streak %d", acc.DailyStreak), params.Now); err != nil {
			return err
		}
		if err := updateAccountTx(ctx, tx, acc, params.Now); err != nil {
			return err
		}

		result = &store.BonusResult{Reward: reward, Streak: acc.DailyStreak, Account: acc}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetMinerActive toggles passive accrual. Activation restarts the accrual
// clock at now so dormant time is never paid out.
func (s *Service) SetMinerActive(ctx context.Context, accountId string, active bool, now time.Time) (*models.Account, error) {
	var acc *models.Account

	err := s.withTx(ctx, "set miner active", func(tx *sql.Tx) error {
		var err error
		acc, err = getAccountTx(ctx, tx, accountId)
		if err != nil {
			return err
		}
		wasActive := acc.Miner.Active
		if wasActive == active && !(active && acc.Miner.LastRewardAt.IsZero()) {
			return nil
		}
		acc.Miner.Active = active
		// Fresh activations start the clock; re-activating with a base in
		// place keeps it so the pending remainder is not discarded.
		if active && (!wasActive || acc.Miner.LastRewardAt.IsZero()) {
			acc.Miner.LastRewardAt = now.UTC()
		}
		return updateAccountTx(ctx, tx, acc, now)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Service) TopAccounts(ctx context.Context, limit int) ([]store.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, queryTopAccounts, limit)
	if err != nil {
		return nil, unavailable("top accounts", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []store.LeaderboardEntry
	for rows.Next() {
		var entry store.LeaderboardEntry
		var earned string
		if err := rows.Scan(&entry.AccountId, &earned); err != nil {
			return nil, unavailable("top accounts", err)
		}
		if entry.TotalEarnedCoins, err = decimal.NewFromString(earned); err != nil {
			return nil, fmt.Errorf("failed to parse total earned coins %q: %w", earned, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("top accounts", err)
	}
	return entries, nil
}

func setBalance(acc *models.Account, c models.Currency, v decimal.Decimal) {
	if c == models.CurrencyStars {
		acc.StarBalance = v
	} else {
		acc.CoinBalance = v
	}
}
