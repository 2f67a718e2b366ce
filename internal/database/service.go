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

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

// defaultPoolId is the singleton reserve pool backing the exchange.
const defaultPoolId = "default"

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	// _txlock=immediate: every write transaction takes the write lock up
	// front, so the read inside a mutation cannot observe a row another
	// writer is about to change.
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	if err := service.seedReserve(ctx, cfg.SeedCoinReserve, cfg.SeedStarReserve); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to seed reserve pool: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Per-user balance documents (hot data). Money columns hold decimal
	-- strings; time columns hold epoch seconds.
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		star_balance TEXT NOT NULL DEFAULT '0',
		coin_balance TEXT NOT NULL DEFAULT '0',
		total_earned_coins TEXT NOT NULL DEFAULT '0',
		last_farm_at INTEGER NOT NULL DEFAULT 0,
		last_bonus_at INTEGER NOT NULL DEFAULT 0,
		daily_streak INTEGER NOT NULL DEFAULT 0,
		miner_active INTEGER NOT NULL DEFAULT 0,
		miner_last_reward_at INTEGER NOT NULL DEFAULT 0,
		miner_total_earned TEXT NOT NULL DEFAULT '0',
		referrer_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_miner_active ON accounts(miner_active);

	-- Exchange liquidity. Operator-funded; both reserves must stay positive.
	CREATE TABLE IF NOT EXISTS reserve_pools (
		id TEXT PRIMARY KEY,
		coin_reserve TEXT NOT NULL,
		star_reserve TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at INTEGER NOT NULL
	);

	-- Promo codes, stored lowercase. usage_limit 0 means unlimited.
	CREATE TABLE IF NOT EXISTS promo_codes (
		code TEXT PRIMARY KEY,
		reward_kind TEXT NOT NULL,
		reward_value TEXT NOT NULL,
		usage_limit INTEGER NOT NULL DEFAULT 0,
		used_count INTEGER NOT NULL DEFAULT 0,
		expires_at INTEGER,
		created_at INTEGER NOT NULL
	);

	-- The append-only used-codes set. The primary key is the per-account
	-- single-use guard.
	CREATE TABLE IF NOT EXISTS promo_redemptions (
		code TEXT NOT NULL,
		account_id TEXT NOT NULL,
		redeemed_at INTEGER NOT NULL,
		PRIMARY KEY (code, account_id)
	);

	CREATE INDEX IF NOT EXISTS idx_promo_redemptions_account ON promo_redemptions(account_id);

	-- Withdrawal requests. Funds are debited at creation and held until
	-- the request reaches a terminal state.
	CREATE TABLE IF NOT EXISTS withdrawal_requests (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		method TEXT NOT NULL,
		address TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		rejection_reason TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		processed_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_withdrawals_account ON withdrawal_requests(account_id);
	CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawal_requests(status);

	-- Audit trail (cold data). Written in the same transaction as every
	-- balance change.
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries(account_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_type ON ledger_entries(entry_type);
	`

	_, err := s.db.Exec(schema)
	return err
}

// seedReserve inserts the singleton pool row if it does not exist yet.
// An existing pool is never overwritten by a restart.
func (s *Service) seedReserve(ctx context.Context, coinReserve, starReserve decimal.Decimal) error {
	if coinReserve.LessThanOrEqual(decimal.Zero) || starReserve.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("reserve seeds must be positive, got coin=%s star=%s", coinReserve, starReserve)
	}
	_, err := s.db.ExecContext(ctx, querySeedReserve, defaultPoolId, coinReserve.String(), starReserve.String(), time.Now().Unix())
	if err != nil {
		return err
	}
	return nil
}

// unavailable tags a driver-level failure with the retriable sentinel.
// Not-found and precondition failures never go through here.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, store.ErrStoreUnavailable, err)
}

// withTx runs fn in a write transaction. fn must return store sentinel
// errors untouched so callers can discriminate with errors.Is.
func (s *Service) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable(op, err)
	}
	return nil
}
