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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanWithdrawal(row rowScanner) (*models.WithdrawalRequest, error) {
	var (
		req                  models.WithdrawalRequest
		amount, status       string
		createdAt, updatedAt int64
		processedAt          sql.NullInt64
	)
	err := row.Scan(&req.Id, &req.AccountId, &amount, &req.Method, &req.Address,
		&status, &req.RejectionReason, &createdAt, &updatedAt, &processedAt)
	if err != nil {
		return nil, err
	}
	if req.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse withdrawal amount %q: %w", amount, err)
	}
	req.Status = models.WithdrawalStatus(status)
	req.CreatedAt = timeFromUnix(createdAt)
	req.UpdatedAt = timeFromUnix(updatedAt)
	if processedAt.Valid {
		t := timeFromUnix(processedAt.Int64)
		req.ProcessedAt = &t
	}
	return &req, nil
}

// CreateWithdrawal debits the stars immediately and opens a pending request.
// The hold prevents the same balance funding two in-flight requests; the
// debit and the request row commit together.
func (s *Service) CreateWithdrawal(ctx context.Context, accountId string, amount decimal.Decimal, method, address string) (*models.WithdrawalRequest, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("withdrawal amount %s must be positive", amount)
	}
	if method == "" || address == "" {
		return nil, fmt.Errorf("withdrawal method and address are required")
	}

	var req *models.WithdrawalRequest
	now := time.Now()
	requestId := uuid.New().String()

	err := s.withTx(ctx, "create withdrawal", func(tx *sql.Tx) error {
		acc, err := getAccountTx(ctx, tx, accountId)
		if err != nil {
			return err
		}
		if acc.StarBalance.LessThan(amount) {
			return fmt.Errorf("account %s has %s stars, withdrawal needs %s: %w",
				accountId, acc.StarBalance, amount, store.ErrInsufficientFunds)
		}

		before := acc.StarBalance
		acc.StarBalance = acc.StarBalance.Sub(amount)

		if _, err := tx.ExecContext(ctx, queryInsertWithdrawal,
			requestId, accountId, amount.String(), method, address, now.Unix(), now.Unix()); err != nil {
			return unavailable("create withdrawal", err)
		}
		if err := appendLedgerEntryTx(ctx, tx, accountId, models.CurrencyStars, "withdrawal_hold",
			amount.Neg(), before, acc.StarBalance, requestId, now); err != nil {
			return err
		}
		if err := updateAccountTx(ctx, tx, acc, now); err != nil {
			return err
		}

		req, err = scanWithdrawal(tx.QueryRowContext(ctx, queryGetWithdrawal, requestId))
		if err != nil {
			return unavailable("create withdrawal", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Withdrawal requested",
		zap.String("request_id", req.Id),
		zap.String("account_id", accountId),
		zap.String("amount", amount.String()),
		zap.String("method", method))

	return req, nil
}

func (s *Service) GetWithdrawal(ctx context.Context, requestId string) (*models.WithdrawalRequest, error) {
	req, err := scanWithdrawal(s.db.QueryRowContext(ctx, queryGetWithdrawal, requestId))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("withdrawal %s: %w", requestId, store.ErrWithdrawalNotFound)
	}
	if err != nil {
		return nil, unavailable("get withdrawal", err)
	}
	return req, nil
}

func (s *Service) ListWithdrawals(ctx context.Context, accountId string, limit int) ([]models.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, queryListWithdrawals, accountId, limit)
	if err != nil {
		return nil, unavailable("list withdrawals", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var requests []models.WithdrawalRequest
	for rows.Next() {
		req, err := scanWithdrawal(rows)
		if err != nil {
			return nil, unavailable("list withdrawals", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list withdrawals", err)
	}
	return requests, nil
}

// transitionEdge maps an admin action to its target state and the states the
// request may currently be in. Only these edges exist; everything else is
// ErrInvalidTransition.
func transitionEdge(action store.WithdrawalAction) (to models.WithdrawalStatus, from [2]models.WithdrawalStatus, err error) {
	switch action {
	case store.WithdrawalActionProcess:
		return models.WithdrawalProcessing, [2]models.WithdrawalStatus{models.WithdrawalPending, models.WithdrawalPending}, nil
	case store.WithdrawalActionApprove:
		return models.WithdrawalApproved, [2]models.WithdrawalStatus{models.WithdrawalPending, models.WithdrawalProcessing}, nil
	case store.WithdrawalActionReject:
		return models.WithdrawalRejected, [2]models.WithdrawalStatus{models.WithdrawalPending, models.WithdrawalProcessing}, nil
	case store.WithdrawalActionComplete:
		return models.WithdrawalCompleted, [2]models.WithdrawalStatus{models.WithdrawalApproved, models.WithdrawalApproved}, nil
	default:
		return "", [2]models.WithdrawalStatus{}, fmt.Errorf("unknown withdrawal action %q", action)
	}
}

// TransitionWithdrawal applies one admin action. The allowed-from set sits
// in the UPDATE's WHERE clause, so a request already past it affects zero
// rows and nothing moves. Rejection credits the held amount back in the same
// transaction; because the status update is the gate, a repeated reject can
// never refund twice.
func (s *Service) TransitionWithdrawal(ctx context.Context, requestId string, action store.WithdrawalAction, reason string) (*models.WithdrawalRequest, error) {
	to, from, err := transitionEdge(action)
	if err != nil {
		return nil, err
	}

	var req *models.WithdrawalRequest
	now := time.Now()

	err = s.withTx(ctx, "transition withdrawal", func(tx *sql.Tx) error {
		req, err = scanWithdrawal(tx.QueryRowContext(ctx, queryGetWithdrawal, requestId))
		if err == sql.ErrNoRows {
			return fmt.Errorf("withdrawal %s: %w", requestId, store.ErrWithdrawalNotFound)
		}
		if err != nil {
			return unavailable("transition withdrawal", err)
		}

		rejection := ""
		if action == store.WithdrawalActionReject {
			rejection = reason
		}
		var processedAt any
		if to == models.WithdrawalApproved || to.Terminal() {
			processedAt = now.Unix()
		}

		result, err := tx.ExecContext(ctx, queryTransitionWithdrawal,
			string(to), rejection, now.Unix(), processedAt,
			requestId, string(from[0]), string(from[1]))
		if err != nil {
			return unavailable("transition withdrawal", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return unavailable("transition withdrawal", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("withdrawal %s is %s, action %s: %w", requestId, req.Status, action, store.ErrInvalidTransition)
		}

		if action == store.WithdrawalActionReject {
			acc, err := getAccountTx(ctx, tx, req.AccountId)
			if err != nil {
				return err
			}
			before := acc.StarBalance
			acc.StarBalance = acc.StarBalance.Add(req.Amount)
			if err := appendLedgerEntryTx(ctx, tx, acc.Id, models.CurrencyStars, "withdrawal_refund",
				req.Amount, before, acc.StarBalance, requestId, now); err != nil {
				return err
			}
			if err := updateAccountTx(ctx, tx, acc, now); err != nil {
				return err
			}
		}

		req, err = scanWithdrawal(tx.QueryRowContext(ctx, queryGetWithdrawal, requestId))
		if err != nil {
			return unavailable("transition withdrawal", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Withdrawal transitioned",
		zap.String("request_id", requestId),
		zap.String("action", string(action)),
		zap.String("status", string(req.Status)),
		zap.String("account_id", req.AccountId))

	return req, nil
}
