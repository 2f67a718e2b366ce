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

	"star-economy-go/internal/exchange"
	"star-economy-go/internal/models"
	"star-economy-go/internal/store"

	"github.com/shopspring/decimal"
)

func scanReserve(row rowScanner) (*models.ReservePool, error) {
	var (
		pool       models.ReservePool
		coin, star string
		updatedAt  int64
	)
	err := row.Scan(&pool.Id, &coin, &star, &pool.Version, &updatedAt)
	if err != nil {
		return nil, err
	}
	if pool.CoinReserve, err = decimal.NewFromString(coin); err != nil {
		return nil, fmt.Errorf("failed to parse coin reserve %q: %w", coin, err)
	}
	if pool.StarReserve, err = decimal.NewFromString(star); err != nil {
		return nil, fmt.Errorf("failed to parse star reserve %q: %w", star, err)
	}
	pool.UpdatedAt = timeFromUnix(updatedAt)
	return &pool, nil
}

func getReserveTx(ctx context.Context, tx *sql.Tx) (*models.ReservePool, error) {
	pool, err := scanReserve(tx.QueryRowContext(ctx, queryGetReserve, defaultPoolId))
	if err == sql.ErrNoRows {
		// The pool is seeded at startup; no row means a broken deployment,
		// not a transient failure worth retrying.
		return nil, fmt.Errorf("reserve pool %s: %w", defaultPoolId, store.ErrReserveNotFound)
	}
	if err != nil {
		return nil, unavailable("get reserve", err)
	}
	return pool, nil
}

func (s *Service) GetReserve(ctx context.Context) (*models.ReservePool, error) {
	pool, err := scanReserve(s.db.QueryRowContext(ctx, queryGetReserve, defaultPoolId))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reserve pool %s: %w", defaultPoolId, store.ErrReserveNotFound)
	}
	if err != nil {
		return nil, unavailable("get reserve", err)
	}
	return pool, nil
}

func updateReserveTx(ctx context.Context, tx *sql.Tx, pool *models.ReservePool, now time.Time) error {
	result, err := tx.ExecContext(ctx, queryUpdateReserve,
		pool.CoinReserve.String(), pool.StarReserve.String(), now.Unix(), pool.Id, pool.Version)
	if err != nil {
		return unavailable("update reserve", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return unavailable("update reserve", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("reserve pool %s at version %d: %w", pool.Id, pool.Version, store.ErrVersionConflict)
	}
	pool.Version++
	pool.UpdatedAt = now.UTC()
	return nil
}

// ApplyExchange debits the account, credits it in the other currency, and
// moves the reserve, all in one transaction. The quote is computed here from
// the reserve row read under the write lock, so the rate applied is the rate
// of the reserve actually mutated.
func (s *Service) ApplyExchange(ctx context.Context, params store.ExchangeParams) (*store.ExchangeResult, error) {
	if !params.From.Valid() {
		return nil, fmt.Errorf("apply exchange: unknown currency %q", params.From)
	}

	var result *store.ExchangeResult
	now := time.Now()
	to := params.From.Other()

	err := s.withTx(ctx, "apply exchange", func(tx *sql.Tx) error {
		acc, err := getAccountTx(ctx, tx, params.AccountId)
		if err != nil {
			return err
		}
		pool, err := getReserveTx(ctx, tx)
		if err != nil {
			return err
		}

		if acc.Balance(params.From).LessThan(params.Amount) {
			return fmt.Errorf("account %s has %s %s, needs %s: %w",
				acc.Id, acc.Balance(params.From), params.From, params.Amount, store.ErrInsufficientFunds)
		}

		fill, err := exchange.Quote(pool.Reserve(params.From), pool.Reserve(to), params.Amount, params.CommissionRate)
		if err != nil {
			return err
		}

		fromBefore := acc.Balance(params.From)
		toBefore := acc.Balance(to)
		setBalance(acc, params.From, fromBefore.Sub(params.Amount))
		setBalance(acc, to, toBefore.Add(fill.Received))

		setReserve(pool, params.From, pool.Reserve(params.From).Add(params.Amount))
		setReserve(pool, to, pool.Reserve(to).Sub(fill.Received))

		reference := fmt.Sprintf("exchange %s %s -> %s %s", params.Amount, params.From, fill.Received, to)
		if err := appendLedgerEntryTx(ctx, tx, acc.Id, params.From, "exchange_out",
			params.Amount.Neg(), fromBefore, acc.Balance(params.From), reference, now); err != nil {
			return err
		}
		if err := appendLedgerEntryTx(ctx, tx, acc.Id, to, "exchange_in",
			fill.Received, toBefore, acc.Balance(to), reference, now); err != nil {
			return err
		}

		if err := updateAccountTx(ctx, tx, acc, now); err != nil {
			return err
		}
		if err := updateReserveTx(ctx, tx, pool, now); err != nil {
			return err
		}

		result = &store.ExchangeResult{
			From:       params.From,
			To:         to,
			Amount:     params.Amount,
			Commission: fill.Commission,
			Rate:       fill.Rate,
			Received:   fill.Received,
			Account:    acc,
			Reserve:    pool,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func setReserve(pool *models.ReservePool, c models.Currency, v decimal.Decimal) {
	if c == models.CurrencyStars {
		pool.StarReserve = v
	} else {
		pool.CoinReserve = v
	}
}
