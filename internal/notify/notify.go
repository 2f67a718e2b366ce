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

// Package notify is the fire-and-forget notification boundary. Delivery is
// at-most-once and best effort: a failed dispatch never rolls back the
// operation that triggered it.
package notify

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EventKind identifies what happened to the account.
type EventKind string

const (
	EventMiningReward       EventKind = "mining_reward"
	EventPromoRedeemed      EventKind = "promo_redeemed"
	EventWithdrawalResolved EventKind = "withdrawal_resolved"
	EventReferralBonus      EventKind = "referral_bonus"
)

// Event is one user-facing notification.
type Event struct {
	AccountId string
	Kind      EventKind
	Amount    decimal.Decimal
	Detail    string
}

// Dispatcher delivers events to the UI layer. Implementations must not
// block the caller beyond the context deadline and must not return delivery
// failures as operation failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

// LogDispatcher writes events to the structured log. It stands in for the
// chat-facing dispatcher in headless deployments and tests.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, event Event) {
	zap.L().Info("Notification dispatched",
		zap.String("account_id", event.AccountId),
		zap.String("kind", string(event.Kind)),
		zap.String("amount", event.Amount.String()),
		zap.String("detail", event.Detail))
}

// NopDispatcher drops every event.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(context.Context, Event) {}
