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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency identifies one of the two economy currencies.
type Currency string

const (
	CurrencyStars Currency = "stars"
	CurrencyCoins Currency = "coins"
)

// Valid reports whether c is a known currency.
func (c Currency) Valid() bool {
	return c == CurrencyStars || c == CurrencyCoins
}

// Other returns the opposite currency.
func (c Currency) Other() Currency {
	if c == CurrencyStars {
		return CurrencyCoins
	}
	return CurrencyStars
}

// MinerState is the passive-income portion of an account.
// LastRewardAt only advances, and only by whole accrual units actually paid.
type MinerState struct {
	Active       bool            `db:"miner_active" json:"active"`
	LastRewardAt time.Time       `db:"miner_last_reward_at" json:"last_reward_at"`
	TotalEarned  decimal.Decimal `db:"miner_total_earned" json:"total_earned"`
}

// Account is the per-user balance document. Version increments on every
// mutation and is the guard for all conditional updates.
type Account struct {
	Id               string          `db:"id" json:"id"`
	StarBalance      decimal.Decimal `db:"star_balance" json:"star_balance"`
	CoinBalance      decimal.Decimal `db:"coin_balance" json:"coin_balance"`
	TotalEarnedCoins decimal.Decimal `db:"total_earned_coins" json:"total_earned_coins"`
	LastFarmAt       time.Time       `db:"last_farm_at" json:"last_farm_at"`
	LastBonusAt      time.Time       `db:"last_bonus_at" json:"last_bonus_at"`
	DailyStreak      int             `db:"daily_streak" json:"daily_streak"`
	Miner            MinerState      `json:"miner"`
	ReferrerId       string          `db:"referrer_id" json:"referrer_id,omitempty"`
	Title            string          `db:"title" json:"title,omitempty"`
	Status           string          `db:"status" json:"status,omitempty"`
	Version          int64           `db:"version" json:"version"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Balance returns the account's balance in the given currency.
func (a *Account) Balance(c Currency) decimal.Decimal {
	if c == CurrencyStars {
		return a.StarBalance
	}
	return a.CoinBalance
}

// ReservePool backs the exchange rate. Both reserves must stay positive;
// a trade that would drive either to zero or below is rejected.
type ReservePool struct {
	Id          string          `db:"id" json:"id"`
	CoinReserve decimal.Decimal `db:"coin_reserve" json:"coin_reserve"`
	StarReserve decimal.Decimal `db:"star_reserve" json:"star_reserve"`
	Version     int64           `db:"version" json:"version"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Reserve returns the pool's reserve of the given currency.
func (p *ReservePool) Reserve(c Currency) decimal.Decimal {
	if c == CurrencyStars {
		return p.StarReserve
	}
	return p.CoinReserve
}

// RewardKind enumerates what a promo code grants.
type RewardKind string

const (
	RewardStars  RewardKind = "stars"
	RewardCoins  RewardKind = "coins"
	RewardTitle  RewardKind = "title"
	RewardStatus RewardKind = "status"
)

// Valid reports whether k is a known reward kind.
func (k RewardKind) Valid() bool {
	switch k {
	case RewardStars, RewardCoins, RewardTitle, RewardStatus:
		return true
	}
	return false
}

// Monetary reports whether the reward credits a balance.
func (k RewardKind) Monetary() bool {
	return k == RewardStars || k == RewardCoins
}

// PromoCode is a single-use-per-account reward voucher. Codes are
// case-insensitive and stored lowercase. UsageLimit zero means unlimited.
type PromoCode struct {
	Code       string     `db:"code" json:"code"`
	RewardKind RewardKind `db:"reward_kind" json:"reward_kind"`
	// RewardValue is a decimal amount for stars/coins rewards and the
	// literal text for title/status rewards.
	RewardValue string     `db:"reward_value" json:"reward_value"`
	UsageLimit  int64      `db:"usage_limit" json:"usage_limit"`
	UsedCount   int64      `db:"used_count" json:"used_count"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// WithdrawalStatus is a state in the withdrawal lifecycle.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalApproved   WithdrawalStatus = "approved"
	WithdrawalRejected   WithdrawalStatus = "rejected"
	WithdrawalCompleted  WithdrawalStatus = "completed"
)

// Terminal reports whether no further transition may leave s. Approved is
// not terminal: it may still advance to completed (no balance change).
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalRejected || s == WithdrawalCompleted
}

// WithdrawalRequest holds funds debited at creation until an admin resolves
// it. Rejection credits the amount back exactly once.
type WithdrawalRequest struct {
	Id              string           `db:"id" json:"id"`
	AccountId       string           `db:"account_id" json:"account_id"`
	Amount          decimal.Decimal  `db:"amount" json:"amount"`
	Method          string           `db:"method" json:"method"`
	Address         string           `db:"address" json:"address"`
	Status          WithdrawalStatus `db:"status" json:"status"`
	RejectionReason string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
	ProcessedAt     *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
}

// LedgerEntry is one row of the append-only audit trail. Every balance
// change writes an entry in the same transaction.
type LedgerEntry struct {
	Id            string          `db:"id" json:"id"`
	AccountId     string          `db:"account_id" json:"account_id"`
	Currency      Currency        `db:"currency" json:"currency"`
	EntryType     string          `db:"entry_type" json:"entry_type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	Reference     string          `db:"reference" json:"reference"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
