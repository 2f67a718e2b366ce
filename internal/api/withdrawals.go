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

// RequestWithdrawal opens a withdrawal request. The stars leave the balance
// immediately and stay held until an admin resolves the request, so the
// same funds cannot back two requests at once.
func (s *EconomyService) RequestWithdrawal(ctx context.Context, accountId string, amount decimal.Decimal, method, address string) (*models.WithdrawalRequest, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("withdrawal amount %s must be positive", amount)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req, err := s.store.CreateWithdrawal(ctx, accountId, amount, method, address)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(accountId)

	return req, nil
}

// AdminTransitionWithdrawal applies an admin action to a request. Rejection
// refunds the held amount exactly once; acting on a resolved request fails
// with no balance change.
func (s *EconomyService) AdminTransitionWithdrawal(ctx context.Context, requestId string, action store.WithdrawalAction, reason string) (*models.WithdrawalRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req, err := s.store.TransitionWithdrawal(ctx, requestId, action, reason)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(req.AccountId)

	if req.Status.Terminal() || req.Status == models.WithdrawalApproved {
		s.notifier.Dispatch(ctx, notify.Event{
			AccountId: req.AccountId,
			Kind:      notify.EventWithdrawalResolved,
			Amount:    req.Amount,
			Detail:    string(req.Status),
		})
	}

	zap.L().Info("Withdrawal admin action applied",
		zap.String("request_id", requestId),
		zap.String("action", string(action)),
		zap.String("status", string(req.Status)))

	return req, nil
}

// Withdrawals lists the account's recent requests, newest first.
func (s *EconomyService) Withdrawals(ctx context.Context, accountId string, limit int) ([]models.WithdrawalRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListWithdrawals(ctx, accountId, limit)
}
