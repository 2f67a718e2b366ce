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

package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrInsufficientFunds,
		ErrVersionConflict,
		ErrInvalidTransition,
		ErrStoreUnavailable,
		ErrInvalidRate,
		ErrReserveExhausted,
		ErrReserveNotFound,
		ErrLimitExceeded,
		ErrAccountNotFound,
		ErrWithdrawalNotFound,
		ErrPromoNotFound,
		ErrPromoAlreadyUsed,
		ErrPromoExpired,
		ErrPromoExists,
		ErrCooldownActive,
		ErrMinerInactive,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v unexpectedly matches %v", a, b)
			}
		}
	}
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("redeem promo: %w", ErrPromoAlreadyUsed)
	if !errors.Is(wrapped, ErrPromoAlreadyUsed) {
		t.Error("wrapped error should match ErrPromoAlreadyUsed")
	}
	if errors.Is(wrapped, ErrPromoExpired) {
		t.Error("wrapped error should not match ErrPromoExpired")
	}
}
