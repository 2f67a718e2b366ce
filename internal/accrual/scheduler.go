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

// Package accrual pays out passive mining income on a fixed period. One
// background task sweeps all active miners; it is not per-request work.
package accrual

import (
	"context"
	"errors"
	"time"

	"star-economy-go/internal/cache"
	"star-economy-go/internal/models"
	"star-economy-go/internal/notify"
	"star-economy-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SchedulerConfig contains configuration for Scheduler.
type SchedulerConfig struct {
	Store         store.LedgerStore
	Cache         *cache.AccountCache
	Notifier      notify.Dispatcher
	Interval      time.Duration
	UnitDuration  time.Duration
	RewardPerUnit decimal.Decimal
	Multiplier    decimal.Decimal // 1 when no boost is active
	Clock         func() time.Time
}

// Scheduler periodically credits mining rewards for whole elapsed units.
type Scheduler struct {
	store         store.LedgerStore
	cache         *cache.AccountCache
	notifier      notify.Dispatcher
	interval      time.Duration
	unitDuration  time.Duration
	rewardPerUnit decimal.Decimal
	multiplier    decimal.Decimal
	clock         func() time.Time

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	multiplier := cfg.Multiplier
	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(1)
	}
	return &Scheduler{
		store:         cfg.Store,
		cache:         cfg.Cache,
		notifier:      cfg.Notifier,
		interval:      cfg.Interval,
		unitDuration:  cfg.UnitDuration,
		rewardPerUnit: cfg.RewardPerUnit,
		multiplier:    multiplier,
		clock:         clock,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start launches the sweep loop. The first sweep runs after one interval.
func (s *Scheduler) Start(ctx context.Context) {
	zap.L().Info("Starting accrual scheduler",
		zap.Duration("interval", s.interval),
		zap.Duration("unit_duration", s.unitDuration),
		zap.String("reward_per_unit", s.rewardPerUnit.String()))

	go func() {
		defer close(s.doneChan)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop signals the loop and waits for the in-progress sweep to finish.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	<-s.doneChan
	zap.L().Info("Accrual scheduler stopped")
}

// Sweep pays every active miner once. Accounts are independent: a failure
// on one is logged and the sweep continues. Running Sweep twice on an
// unchanged clock pays zero the second time, because the payout advances
// the accrual base it was computed from.
func (s *Scheduler) Sweep(ctx context.Context) {
	miners, err := s.store.ListActiveMiners(ctx)
	if err != nil {
		zap.L().Error("Accrual sweep could not list miners", zap.Error(err))
		return
	}

	paid, skipped, failed := 0, 0, 0
	for i := range miners {
		switch err := s.accrueOne(ctx, &miners[i]); {
		case err == nil:
			paid++
		case errors.Is(err, errNothingElapsed):
			skipped++
		case errors.Is(err, store.ErrVersionConflict), errors.Is(err, store.ErrMinerInactive):
			// Another writer moved the account under us; its payout state
			// is already newer than our snapshot.
			skipped++
		default:
			failed++
			zap.L().Error("Accrual failed for account",
				zap.String("account_id", miners[i].Id),
				zap.Error(err))
		}
	}

	if paid > 0 || failed > 0 {
		zap.L().Info("Accrual sweep finished",
			zap.Int("paid", paid),
			zap.Int("skipped", skipped),
			zap.Int("failed", failed))
	}
}

var errNothingElapsed = errors.New("no whole accrual unit elapsed")

func (s *Scheduler) accrueOne(ctx context.Context, acc *models.Account) error {
	now := s.clock()
	base := acc.Miner.LastRewardAt
	if base.IsZero() {
		// Miners activated before the accrual clock existed start now.
		// Nothing is credited, so the sweep must not count this as a payout.
		if _, err := s.store.SetMinerActive(ctx, acc.Id, true, now); err != nil {
			return err
		}
		return errNothingElapsed
	}

	elapsedUnits := int64(now.Sub(base) / s.unitDuration)
	if elapsedUnits <= 0 {
		return errNothingElapsed
	}

	reward := s.rewardPerUnit.Mul(decimal.NewFromInt(elapsedUnits)).Mul(s.multiplier)
	advance := time.Duration(elapsedUnits) * s.unitDuration

	// The advance is whole units only; setting the base to now would
	// silently discard the fractional remainder every cycle.
	updated, err := s.store.ApplyAccrual(ctx, store.AccrualParams{
		AccountId:          acc.Id,
		Reward:             reward,
		ExpectedLastReward: base,
		Advance:            advance,
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(acc.Id)

	// Payment is authoritative, notification is best-effort.
	s.notifier.Dispatch(ctx, notify.Event{
		AccountId: updated.Id,
		Kind:      notify.EventMiningReward,
		Amount:    reward,
	})

	zap.L().Debug("Mining reward credited",
		zap.String("account_id", updated.Id),
		zap.Int64("units", elapsedUnits),
		zap.String("reward", reward.String()))

	return nil
}
