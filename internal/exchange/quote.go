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

package exchange

import (
	"fmt"

	"star-economy-go/internal/store"

	"github.com/shopspring/decimal"
)

// Fill is the priced outcome of a trade before it is applied.
type Fill struct {
	Rate       decimal.Decimal
	Commission decimal.Decimal
	Received   decimal.Decimal
}

// Quote prices a trade against the two-pool reserve.
//
// This is a linear (constant-reserve) model: rate = reserveTo/reserveFrom,
// independent of trade size. Unlike constant-product pricing it has no
// slippage, so a large trade moves the rate for everyone afterwards. That is
// acceptable here only because the reserves are operator-funded; users
// cannot deposit into the pool to set up a manipulation.
func Quote(reserveFrom, reserveTo, amount, commissionRate decimal.Decimal) (Fill, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Fill{}, fmt.Errorf("amount %s must be positive: %w", amount, store.ErrInvalidRate)
	}
	if reserveFrom.LessThanOrEqual(decimal.Zero) || reserveTo.LessThanOrEqual(decimal.Zero) {
		return Fill{}, fmt.Errorf("reserves %s/%s: %w", reserveFrom, reserveTo, store.ErrReserveExhausted)
	}

	rate := reserveTo.Div(reserveFrom)
	commission := amount.Mul(commissionRate)
	received := amount.Sub(commission).Mul(rate)

	if received.LessThanOrEqual(decimal.Zero) {
		return Fill{}, fmt.Errorf("received %s for %s: %w", received, amount, store.ErrInvalidRate)
	}
	if reserveTo.Sub(received).LessThanOrEqual(decimal.Zero) {
		return Fill{}, fmt.Errorf("trade would drain reserve %s by %s: %w", reserveTo, received, store.ErrReserveExhausted)
	}

	return Fill{Rate: rate, Commission: commission, Received: received}, nil
}
