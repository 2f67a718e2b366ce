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
	"strings"
	"time"

	"star-economy-go/internal/models"
	"star-economy-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanPromo(row rowScanner) (*models.PromoCode, error) {
	var (
		promo     models.PromoCode
		kind      string
		expiresAt sql.NullInt64
		createdAt int64
	)
	err := row.Scan(&promo.Code, &kind, &promo.RewardValue,
		&promo.UsageLimit, &promo.UsedCount, &expiresAt, &createdAt)
	if err != nil {
		return nil, err
	}
	promo.RewardKind = models.RewardKind(kind)
	if expiresAt.Valid {
		t := timeFromUnix(expiresAt.Int64)
		promo.ExpiresAt = &t
	}
	promo.CreatedAt = timeFromUnix(createdAt)
	return &promo, nil
}

// CreatePromo registers a new code. Codes are case-insensitive; the
// lowercase form is the identity.
func (s *Service) CreatePromo(ctx context.Context, params store.CreatePromoParams) (*models.PromoCode, error) {
	code := strings.ToLower(strings.TrimSpace(params.Code))
	if code == "" {
		return nil, fmt.Errorf("create promo: code cannot be empty")
	}
	if !params.RewardKind.Valid() {
		return nil, fmt.Errorf("create promo: unknown reward kind %q", params.RewardKind)
	}
	if params.RewardKind.Monetary() {
		if _, err := decimal.NewFromString(params.RewardValue); err != nil {
			return nil, fmt.Errorf("create promo: reward value %q is not a decimal: %w", params.RewardValue, err)
		}
	} else if params.RewardValue == "" {
		return nil, fmt.Errorf("create promo: %s reward needs a value", params.RewardKind)
	}
	if params.UsageLimit < 0 {
		return nil, fmt.Errorf("create promo: usage limit cannot be negative, got %d", params.UsageLimit)
	}

	var expiresAt any
	if params.ExpiresAt != nil {
		expiresAt = params.ExpiresAt.Unix()
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx, queryInsertPromo,
		code, string(params.RewardKind), params.RewardValue, params.UsageLimit, expiresAt, now.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("promo %s: %w", code, store.ErrPromoExists)
		}
		return nil, unavailable("create promo", err)
	}

	zap.L().Info("Promo code created",
		zap.String("code", code),
		zap.String("reward_kind", string(params.RewardKind)),
		zap.String("reward_value", params.RewardValue),
		zap.Int64("usage_limit", params.UsageLimit))

	return s.GetPromo(ctx, code)
}

func (s *Service) GetPromo(ctx context.Context, code string) (*models.PromoCode, error) {
	promo, err := scanPromo(s.db.QueryRowContext(ctx, queryGetPromo, strings.ToLower(strings.TrimSpace(code))))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("promo %s: %w", code, store.ErrPromoNotFound)
	}
	if err != nil {
		return nil, unavailable("get promo", err)
	}
	return promo, nil
}

func (s *Service) ListPromos(ctx context.Context) ([]models.PromoCode, error) {
	rows, err := s.db.QueryContext(ctx, queryListPromos)
	if err != nil {
		return nil, unavailable("list promos", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var promos []models.PromoCode
	for rows.Next() {
		promo, err := scanPromo(rows)
		if err != nil {
			return nil, unavailable("list promos", err)
		}
		promos = append(promos, *promo)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list promos", err)
	}
	return promos, nil
}

// RedeemPromo applies a code to an account. The single-use marker, the
// usage-count bump with its limit guard, and the reward all commit in one
// transaction; N concurrent redemptions of a limit-1 code produce exactly
// one success.
func (s *Service) RedeemPromo(ctx context.Context, accountId, code string) (*store.RedeemResult, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	var result *store.RedeemResult
	now := time.Now()

	err := s.withTx(ctx, "redeem promo", func(tx *sql.Tx) error {
		promo, err := scanPromo(tx.QueryRowContext(ctx, queryGetPromo, code))
		if err == sql.ErrNoRows {
			return fmt.Errorf("promo %s: %w", code, store.ErrPromoNotFound)
		}
		if err != nil {
			return unavailable("redeem promo", err)
		}
		if promo.ExpiresAt != nil && now.After(*promo.ExpiresAt) {
			return fmt.Errorf("promo %s expired %s: %w", code, promo.ExpiresAt.Format(time.RFC3339), store.ErrPromoExpired)
		}

		acc, err := getAccountTx(ctx, tx, accountId)
		if err != nil {
			return err
		}

		// The redemption row is the per-account single-use marker; the
		// primary key makes a duplicate insert fail inside the same
		// transaction that would have paid the reward.
		if _, err := tx.ExecContext(ctx, queryInsertRedemption, code, accountId, now.Unix()); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("promo %s, account %s: %w", code, accountId, store.ErrPromoAlreadyUsed)
			}
			return unavailable("redeem promo", err)
		}

		bump, err := tx.ExecContext(ctx, queryBumpPromoUsage, code)
		if err != nil {
			return unavailable("redeem promo", err)
		}
		rowsAffected, err := bump.RowsAffected()
		if err != nil {
			return unavailable("redeem promo", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("promo %s used %d of %d: %w", code, promo.UsedCount, promo.UsageLimit, store.ErrLimitExceeded)
		}

		result = &store.RedeemResult{Code: code, RewardKind: promo.RewardKind}

		switch promo.RewardKind {
		case models.RewardStars, models.RewardCoins:
			amount, err := decimal.NewFromString(promo.RewardValue)
			if err != nil {
				return fmt.Errorf("promo %s reward value %q: %w", code, promo.RewardValue, err)
			}
			currency := models.CurrencyStars
			if promo.RewardKind == models.RewardCoins {
				currency = models.CurrencyCoins
			}
			before := acc.Balance(currency)
			setBalance(acc, currency, before.Add(amount))
			if currency == models.CurrencyCoins {
				acc.TotalEarnedCoins = acc.TotalEarnedCoins.Add(amount)
			}
			if err := appendLedgerEntryTx(ctx, tx, acc.Id, currency, "promo_reward",
				amount, before, acc.Balance(currency), code, now); err != nil {
				return err
			}
			result.RewardAmount = amount
		case models.RewardTitle:
			acc.Title = promo.RewardValue
			result.RewardText = promo.RewardValue
		case models.RewardStatus:
			acc.Status = promo.RewardValue
			result.RewardText = promo.RewardValue
		default:
			return fmt.Errorf("promo %s has unknown reward kind %q", code, promo.RewardKind)
		}

		if err := updateAccountTx(ctx, tx, acc, now); err != nil {
			return err
		}
		result.Account = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Promo code redeemed",
		zap.String("code", code),
		zap.String("account_id", accountId),
		zap.String("reward_kind", string(result.RewardKind)))

	return result, nil
}
