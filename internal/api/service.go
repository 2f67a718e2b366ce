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

// Package api exposes the economy operation set consumed by the UI layer.
// It is an internal service boundary, not a network protocol: each
// operation returns a result or an error, and the UI renders it.
package api

import (
	"context"
	"fmt"
	"time"

	"star-economy-go/internal/cache"
	"star-economy-go/internal/exchange"
	"star-economy-go/internal/models"
	"star-economy-go/internal/notify"
	"star-economy-go/internal/store"

	"github.com/shopspring/decimal"
)

// Params are the tunable reward rules, loaded from the economy parameter
// file at startup.
type Params struct {
	FarmReward   decimal.Decimal
	FarmCurrency models.Currency
	FarmCooldown time.Duration

	BonusBase       decimal.Decimal
	BonusPerStreak  decimal.Decimal
	BonusCurrency   models.Currency
	BonusStreakCap  int
	BonusCooldown   time.Duration
	BonusResetAfter time.Duration

	ReferralBonus decimal.Decimal
}

// EconomyService wires the ledger store, the account cache, the exchange
// engine, and the notifier into the operation set.
type EconomyService struct {
	store     store.LedgerStore
	cache     *cache.AccountCache
	engine    *exchange.Engine
	notifier  notify.Dispatcher
	params    Params
	opTimeout time.Duration
	clock     func() time.Time
}

// EconomyServiceConfig contains configuration for EconomyService.
type EconomyServiceConfig struct {
	Store     store.LedgerStore
	Cache     *cache.AccountCache
	Engine    *exchange.Engine
	Notifier  notify.Dispatcher
	Params    Params
	OpTimeout time.Duration
	Clock     func() time.Time
}

func NewEconomyService(cfg EconomyServiceConfig) *EconomyService {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NopDispatcher{}
	}
	return &EconomyService{
		store:     cfg.Store,
		cache:     cfg.Cache,
		engine:    cfg.Engine,
		notifier:  notifier,
		params:    cfg.Params,
		opTimeout: cfg.OpTimeout,
		clock:     clock,
	}
}

// withTimeout bounds a store call so no operation blocks indefinitely.
func (s *EconomyService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *EconomyService) HealthCheck(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.store.GetReserve(ctx); err != nil {
		return fmt.Errorf("ledger health check failed: %w", err)
	}
	return nil
}
