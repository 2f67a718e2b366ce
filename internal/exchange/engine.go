package exchange

import (
	"context"
	"fmt"

	"star-economy-go/internal/cache"
	"star-economy-go/internal/models"
	"star-economy-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine executes two-pool trades. The account debit, account credit, and
// reserve movement are one store transaction; a failure partway leaves
// neither side mutated.
type Engine struct {
	store          store.LedgerStore
	cache          *cache.AccountCache
	commissionRate decimal.Decimal
}

func NewEngine(ledger store.LedgerStore, accounts *cache.AccountCache, commissionRate decimal.Decimal) *Engine {
	return &Engine{
		store:          ledger,
		cache:          accounts,
		commissionRate: commissionRate,
	}
}

// Preview prices a trade against the current reserve without applying it.
// The applied fill may differ if the reserve moves before Exchange runs.
func (e *Engine) Preview(ctx context.Context, from models.Currency, amount decimal.Decimal) (Fill, error) {
	if !from.Valid() {
		return Fill{}, fmt.Errorf("unknown currency %q", from)
	}
	reserve, err := e.store.GetReserve(ctx)
	if err != nil {
		return Fill{}, err
	}
	return Quote(reserve.Reserve(from), reserve.Reserve(from.Other()), amount, e.commissionRate)
}

// Exchange trades amount of the from currency for the other currency. The
// quote is recomputed by the store inside the applying transaction so the
// rate used is the rate of the reserve actually mutated.
func (e *Engine) Exchange(ctx context.Context, accountId string, from models.Currency, amount decimal.Decimal) (*store.ExchangeResult, error) {
	if !from.Valid() {
		return nil, fmt.Errorf("unknown currency %q", from)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("exchange amount %s must be positive: %w", amount, store.ErrInvalidRate)
	}

	result, err := e.store.ApplyExchange(ctx, store.ExchangeParams{
		AccountId:      accountId,
		From:           from,
		Amount:         amount,
		CommissionRate: e.commissionRate,
	})
	if err != nil {
		return nil, err
	}

	e.cache.Invalidate(accountId)

	zap.L().Info("Exchange filled",
		zap.String("account_id", accountId),
		zap.String("from", string(result.From)),
		zap.String("to", string(result.To)),
		zap.String("amount", result.Amount.String()),
		zap.String("commission", result.Commission.String()),
		zap.String("rate", result.Rate.String()),
		zap.String("received", result.Received.String()))

	return result, nil
}
