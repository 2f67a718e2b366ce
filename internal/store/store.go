package store

import (
	"context"
	"errors"
	"time"

	"star-economy-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations. Callers
// discriminate with errors.Is; the store wraps them with context.
var (
	// ErrInsufficientFunds: a debit would drive a balance below zero.
	// Local error, nothing was mutated.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrVersionConflict: the guarded update lost a race. The caller should
	// re-fetch and may retry the whole operation.
	ErrVersionConflict = errors.New("version conflict")
	// ErrInvalidTransition: a withdrawal transition was attempted from a
	// state that does not permit it. No mutation was performed.
	ErrInvalidTransition = errors.New("invalid withdrawal transition")
	// ErrStoreUnavailable: the backing store could not be reached. Transient;
	// safe to retry with backoff, no partial state was persisted.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	// ErrInvalidRate: the exchange quote came out non-positive.
	ErrInvalidRate = errors.New("invalid exchange rate")
	// ErrReserveExhausted: the trade would drive a reserve to zero or below.
	ErrReserveExhausted = errors.New("reserve exhausted")
	// ErrReserveNotFound: the singleton reserve pool row is missing. A
	// deployment fault; retrying will not make the row appear.
	ErrReserveNotFound = errors.New("reserve pool not found")
	// ErrLimitExceeded: the promo code's usage limit has been reached.
	ErrLimitExceeded = errors.New("promo usage limit exceeded")

	ErrAccountNotFound    = errors.New("account not found")
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
	ErrPromoNotFound      = errors.New("promo code not found")
	ErrPromoAlreadyUsed   = errors.New("promo code already redeemed by account")
	ErrPromoExpired       = errors.New("promo code expired")
	ErrPromoExists        = errors.New("promo code already exists")
	ErrCooldownActive     = errors.New("cooldown has not elapsed")
	ErrMinerInactive      = errors.New("miner is not active")
)

// BalanceDelta is one signed balance adjustment within an AdjustBalances call.
type BalanceDelta struct {
	Currency models.Currency
	Amount   decimal.Decimal // positive credits, negative debits
}

// AdjustParams describes a multi-field balance mutation applied as a single
// atomic document update. CountsAsEarned adds positive coin deltas to the
// monotonic total_earned_coins counter.
type AdjustParams struct {
	AccountId      string
	Deltas         []BalanceDelta
	EntryType      string
	Reference      string
	CountsAsEarned bool
}

// CreateAccountParams describes first-interaction account creation.
// When the account is genuinely new and ReferrerId names an existing
// account, ReferralBonus stars are credited to the referrer in the same
// transaction; repeat calls never re-credit.
type CreateAccountParams struct {
	AccountId     string
	ReferrerId    string
	ReferralBonus decimal.Decimal
}

// FarmParams describes a farm claim: credit Reward in Currency if at least
// Cooldown has elapsed since the account's last farm.
type FarmParams struct {
	AccountId string
	Currency  models.Currency
	Reward    decimal.Decimal
	Cooldown  time.Duration
	Now       time.Time
}

// BonusParams describes a daily bonus claim. A claim is allowed once
// Cooldown has elapsed; a gap beyond ResetAfter resets the streak to 1.
type BonusParams struct {
	AccountId  string
	Currency   models.Currency
	BaseReward decimal.Decimal
	PerStreak  decimal.Decimal
	StreakCap  int
	Cooldown   time.Duration
	ResetAfter time.Duration
	Now        time.Time
}

// BonusResult reports the credited reward and the streak after the claim.
type BonusResult struct {
	Reward  decimal.Decimal
	Streak  int
	Account *models.Account
}

// AccrualParams describes one account's passive payout. ExpectedLastReward
// is the miner_last_reward_at value the computation was based on; the store
// applies the payout only if it still holds, which makes re-runs pay zero.
type AccrualParams struct {
	AccountId          string
	Reward             decimal.Decimal
	ExpectedLastReward time.Time
	Advance            time.Duration // whole units actually paid, as a duration
}

// ExchangeParams describes a two-pool trade. The quote is recomputed inside
// the store transaction from the live reserve row; CommissionRate travels
// with the request so the applied fill matches the applied reserve.
type ExchangeParams struct {
	AccountId      string
	From           models.Currency
	Amount         decimal.Decimal
	CommissionRate decimal.Decimal
}

// ExchangeResult reports the applied fill.
type ExchangeResult struct {
	From       models.Currency
	To         models.Currency
	Amount     decimal.Decimal
	Commission decimal.Decimal
	Rate       decimal.Decimal
	Received   decimal.Decimal
	Account    *models.Account
	Reserve    *models.ReservePool
}

// RedeemResult reports a successful promo redemption.
type RedeemResult struct {
	Code       string
	RewardKind models.RewardKind
	// RewardAmount is set for monetary kinds, RewardText for title/status.
	RewardAmount decimal.Decimal
	RewardText   string
	Account      *models.Account
}

// WithdrawalAction is an admin operation on a withdrawal request.
type WithdrawalAction string

const (
	WithdrawalActionProcess  WithdrawalAction = "process"
	WithdrawalActionApprove  WithdrawalAction = "approve"
	WithdrawalActionReject   WithdrawalAction = "reject"
	WithdrawalActionComplete WithdrawalAction = "complete"
)

// CreatePromoParams describes a new promo code.
type CreatePromoParams struct {
	Code        string
	RewardKind  models.RewardKind
	RewardValue string
	UsageLimit  int64 // zero means unlimited
	ExpiresAt   *time.Time
}

// LeaderboardEntry is one row of the top-earners listing.
type LeaderboardEntry struct {
	AccountId        string
	TotalEarnedCoins decimal.Decimal
}

// LedgerStore defines the contract every backend must satisfy. All financial
// mutations are single atomic store-level operations: conditional updates
// guarded by the account version (or an equivalent precondition), never
// read-then-write in application code.
type LedgerStore interface {
	// --- Accounts ---
	GetAccount(ctx context.Context, accountId string) (*models.Account, error)
	// CreateAccountIfAbsent reports through its second return whether the
	// referral bonus was credited to ReferrerId by this call.
	CreateAccountIfAbsent(ctx context.Context, params CreateAccountParams) (*models.Account, bool, error)
	AdjustBalances(ctx context.Context, params AdjustParams) (*models.Account, error)
	Farm(ctx context.Context, params FarmParams) (*models.Account, error)
	ClaimDailyBonus(ctx context.Context, params BonusParams) (*BonusResult, error)
	SetMinerActive(ctx context.Context, accountId string, active bool, now time.Time) (*models.Account, error)
	TopAccounts(ctx context.Context, limit int) ([]LeaderboardEntry, error)

	// --- Accrual ---
	ListActiveMiners(ctx context.Context) ([]models.Account, error)
	ApplyAccrual(ctx context.Context, params AccrualParams) (*models.Account, error)

	// --- Exchange ---
	GetReserve(ctx context.Context) (*models.ReservePool, error)
	ApplyExchange(ctx context.Context, params ExchangeParams) (*ExchangeResult, error)

	// --- Promo codes ---
	CreatePromo(ctx context.Context, params CreatePromoParams) (*models.PromoCode, error)
	GetPromo(ctx context.Context, code string) (*models.PromoCode, error)
	ListPromos(ctx context.Context) ([]models.PromoCode, error)
	RedeemPromo(ctx context.Context, accountId, code string) (*RedeemResult, error)

	// --- Withdrawals ---
	CreateWithdrawal(ctx context.Context, accountId string, amount decimal.Decimal, method, address string) (*models.WithdrawalRequest, error)
	GetWithdrawal(ctx context.Context, requestId string) (*models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, accountId string, limit int) ([]models.WithdrawalRequest, error)
	TransitionWithdrawal(ctx context.Context, requestId string, action WithdrawalAction, reason string) (*models.WithdrawalRequest, error)

	// --- Audit trail ---
	GetLedgerHistory(ctx context.Context, accountId string, limit, offset int) ([]models.LedgerEntry, error)

	// --- Lifecycle ---
	Close()
}
