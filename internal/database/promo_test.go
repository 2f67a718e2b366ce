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
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"star-economy-go/internal/models"
	"star-economy-go/internal/store"
)

func TestCreatePromo_Validation(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := service.CreatePromo(ctx, store.CreatePromoParams{
		Code: "", RewardKind: models.RewardStars, RewardValue: "10",
	})
	if err == nil {
		t.Error("Empty code should be rejected")
	}

	_, err = service.CreatePromo(ctx, store.CreatePromoParams{
		Code: "bad", RewardKind: "jackpot", RewardValue: "10",
	})
	if err == nil {
		t.Error("Unknown reward kind should be rejected")
	}

	_, err = service.CreatePromo(ctx, store.CreatePromoParams{
		Code: "bad", RewardKind: models.RewardStars, RewardValue: "not-a-number",
	})
	if err == nil {
		t.Error("Non-decimal monetary value should be rejected")
	}
}

func TestCreatePromo_DuplicateCode(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	params := store.CreatePromoParams{Code: "WELCOME", RewardKind: models.RewardStars, RewardValue: "10"}
	promo, err := service.CreatePromo(ctx, params)
	if err != nil {
		t.Fatalf("CreatePromo failed: %v", err)
	}
	if promo.Code != "welcome" {
		t.Errorf("Codes must be stored lowercase, got %q", promo.Code)
	}

	// Same code in a different case is the same code.
	if _, err := service.CreatePromo(ctx, store.CreatePromoParams{
		Code: "welcome", RewardKind: models.RewardCoins, RewardValue: "5",
	}); !errors.Is(err, store.ErrPromoExists) {
		t.Fatalf("Expected ErrPromoExists, got %v", err)
	}
}

func TestRedeemPromo_CreditsReward(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mustCreateAccount(t, service, "user1")
	if _, err := service.CreatePromo(ctx, store.CreatePromoParams{
		Code: "stars10", RewardKind: models.RewardStars, RewardValue: "10",
	}); err != nil {
		t.Fatalf("CreatePromo failed: %v", err)
	}

	// Redemption is case-insensitive.
	result, err := service.RedeemPromo(ctx, "user1", "STARS10")
	if err != nil {
		t.Fatalf("RedeemPromo failed: %v", err)
	}
	if !result.RewardAmount.Equal(mustDecimal(t, "10")) {
		t.Errorf("Expected reward 10, got %s", result.RewardAmount)
	}
	if !result.Account.StarBalance.Equal(mustDecimal(t, "10")) {
		t.Errorf("Expected 10 stars, got %s", result.Account.StarBalance)
	}

	promo, _ := service.GetPromo(ctx, "stars10")
	if promo.UsedCount != 1 {
		t.Errorf("Expected used count 1, got %d", promo.UsedCount)
	}
}

func TestRedeemPromo_SingleUsePerAccount(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mustCreateAccount(t, service, "user1")
	if _, err := service.CreatePromo(ctx, store.CreatePromoParams{
		Code: "once", RewardKind: models.RewardCoins, RewardValue: "50",
	}); err != nil {
		t.Fatalf("CreatePromo failed: %v", err)
	}

	if _, err := service.RedeemPromo(ctx, "user1", "once"); err != nil {
		t.Fatalf("First redemption failed: %v", err)
	}
	if _, err := service.RedeemPromo(ctx, "user1", "once"); !errors.Is(err, store.ErrPromoAlreadyUsed) {
		t.Fatalf("Expected ErrPromoAlreadyUsed, got %v", err)
	}

	// The failed second redemption must not have paid.
	acc, _ := service.GetAccount(ctx, "user1")
	if !acc.CoinBalance.Equal(mustDecimal(t, "50")) {
		t.Errorf("Expected 50 coins after one redemption, got %s", acc.CoinBalance)
	}
}

func TestRedeemPromo_UsageLimitUnderConcurrency(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	const contenders = 5
	for i := 0; i < contenders; i++ {
		mustCreateAccount(t, service, fmt.Sprintf("user%d", i))
	}
	if _, err := service.CreatePromo(ctx, store.CreatePromoParams{
		Code: "golden", RewardKind: models.RewardStars, RewardValue: "100", UsageLimit: 1,
	}); err != nil {
		t.Fatalf("CreatePromo failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.RedeemPromo(ctx, fmt.Sprintf("user%d", i), "golden")
		}(i)
	}
	wg.Wait()

	succeeded, limited := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrLimitExceeded):
			limited++
		default:
			t.Errorf("Unexpected redemption error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("Expected exactly 1 successful redemption, got %d", succeeded)
	}
	if limited != contenders-1 {
		t.Errorf("Expected %d limit rejections, got %d", contenders-1, limited)
	}
}

func TestRedeemPromo_UnlimitedUsage(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.CreatePromo(ctx, store.CreatePromoParams{
		Code: "forall", RewardKind: models.RewardCoins, RewardValue: "1",
	}); err != nil {
		t.Fatalf("CreatePromo failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("user%d", i)
		mustCreateAccount(t, service, id)
		if _, err := service.RedeemPromo(ctx, id, "forall"); err != nil {
			t.Fatalf("Redemption %d failed on unlimited code: %v", i, err)
		}
	}

	promo, _ := service.GetPromo(ctx, "forall")
	if promo.UsedCount != 3 {
		t.Errorf("Expected used count 3, got %d", promo.UsedCount)
	}
}

func TestRedeemPromo_Expired(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mustCreateAccount(t, service, "user1")
	past := time.Now().Add(-time.Hour)
	if _, err := service.CreatePromo(ctx, store.CreatePromoParams{
		Code: "stale", RewardKind: models.RewardStars, RewardValue: "10", ExpiresAt: &past,
	}); err != nil {
		t.Fatalf("CreatePromo failed: %v", err)
	}

	if _, err := service.RedeemPromo(ctx, "user1", "stale"); !errors.Is(err, store.ErrPromoExpired) {
		t.Fatalf("Expected ErrPromoExpired, got %v", err)
	}
}

func TestRedeemPromo_NotFound(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	mustCreateAccount(t, service, "user1")
	if _, err := service.RedeemPromo(context.Background(), "user1", "missing"); !errors.Is(err, store.ErrPromoNotFound) {
		t.Fatalf("Expected ErrPromoNotFound, got %v", err)
	}
}

func TestRedeemPromo_TitleReward(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mustCreateAccount(t, service, "user1")
	if _, err := service.CreatePromo(ctx, store.CreatePromoParams{
		Code: "vip", RewardKind: models.RewardTitle, RewardValue: "Night Baron",
	}); err != nil {
		t.Fatalf("CreatePromo failed: %v", err)
	}

	result, err := service.RedeemPromo(ctx, "user1", "vip")
	if err != nil {
		t.Fatalf("RedeemPromo failed: %v", err)
	}
	if result.RewardText != "Night Baron" {
		t.Errorf("Expected title reward text, got %q", result.RewardText)
	}
	if result.Account.Title != "Night Baron" {
		t.Errorf("Expected account title set, got %q", result.Account.Title)
	}
	if !result.Account.StarBalance.IsZero() {
		t.Errorf("Title reward must not credit a balance, got %s stars", result.Account.StarBalance)
	}
}
