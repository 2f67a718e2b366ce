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
	"fmt"

	"star-economy-go/internal/models"
	"star-economy-go/internal/notify"
	"star-economy-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Register creates the account on first interaction. Safe to call on every
// inbound action; an existing account makes it a read. The referral bonus
// is paid to the referrer only when the account is genuinely new.
func (s *EconomyService) Register(ctx context.Context, accountId, referrerId string) (*models.Account, error) {
	if accountId == "" {
		return nil, fmt.Errorf("account id cannot be empty")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	acc, referralPaid, err := s.store.CreateAccountIfAbsent(ctx, store.CreateAccountParams{
		AccountId:     accountId,
		ReferrerId:    referrerId,
		ReferralBonus: s.params.ReferralBonus,
	})
	if err != nil {
		return nil, err
	}
	if referralPaid {
		s.cache.Invalidate(referrerId)
		s.notifier.Dispatch(ctx, notify.Event{
			AccountId: referrerId,
			Kind:      notify.EventReferralBonus,
			Amount:    s.params.ReferralBonus,
			Detail:    accountId,
		})
	}
	return acc, nil
}

// FarmResult reports a successful farm claim.
type FarmResult struct {
	Reward   decimal.Decimal
	Currency models.Currency
	Account  *models.Account
}

// Farm pays the fixed farm reward once per cooldown window.
func (s *EconomyService) Farm(ctx context.Context, accountId string) (*FarmResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	acc, err := s.store.Farm(ctx, store.FarmParams{
		AccountId: accountId,
		Currency:  s.params.FarmCurrency,
		Reward:    s.params.FarmReward,
		Cooldown:  s.params.FarmCooldown,
		Now:       s.clock(),
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(accountId)

	return &FarmResult{
		Reward:   s.params.FarmReward,
		Currency: s.params.FarmCurrency,
		Account:  acc,
	}, nil
}

// ClaimDailyBonus pays the streak-scaled daily reward.
func (s *EconomyService) ClaimDailyBonus(ctx context.Context, accountId string) (*store.BonusResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.store.ClaimDailyBonus(ctx, store.BonusParams{
		AccountId:  accountId,
		Currency:   s.params.BonusCurrency,
		BaseReward: s.params.BonusBase,
		PerStreak:  s.params.BonusPerStreak,
		StreakCap:  s.params.BonusStreakCap,
		Cooldown:   s.params.BonusCooldown,
		ResetAfter: s.params.BonusResetAfter,
		Now:        s.clock(),
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(accountId)

	zap.L().Info("Daily bonus claimed",
		zap.String("account_id", accountId),
		zap.Int("streak", result.Streak),
		zap.String("reward", result.Reward.String()))

	return result, nil
}

// Exchange trades between the two currencies through the engine.
func (s *EconomyService) Exchange(ctx context.Context, accountId string, from models.Currency, amount decimal.Decimal) (*store.ExchangeResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	// The engine invalidates the cache itself.
	return s.engine.Exchange(ctx, accountId, from, amount)
}

// RedeemPromo applies a promo code to the account.
func (s *EconomyService) RedeemPromo(ctx context.Context, accountId, code string) (*store.RedeemResult, error) {
	if code == "" {
		return nil, fmt.Errorf("promo code cannot be empty")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.store.RedeemPromo(ctx, accountId, code)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(accountId)

	s.notifier.Dispatch(ctx, notify.Event{
		AccountId: accountId,
		Kind:      notify.EventPromoRedeemed,
		Amount:    result.RewardAmount,
		Detail:    result.Code,
	})

	return result, nil
}

// SetMinerActive toggles passive mining for the account.
func (s *EconomyService) SetMinerActive(ctx context.Context, accountId string, active bool) (*models.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	acc, err := s.store.SetMinerActive(ctx, accountId, active, s.clock())
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(accountId)

	zap.L().Info("Miner state changed",
		zap.String("account_id", accountId),
		zap.Bool("active", active))

	return acc, nil
}
