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
	"testing"
	"time"

	"star-economy-go/internal/store"
)

func TestListActiveMiners(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Unix(1700000000, 0).UTC()
	mustCreateAccount(t, service, "active1")
	mustCreateAccount(t, service, "active2")
	mustCreateAccount(t, service, "idle")
	for _, id := range []string{"active1", "active2"} {
		if _, err := service.SetMinerActive(ctx, id, true, now); err != nil {
			t.Fatalf("SetMinerActive failed: %v", err)
		}
	}

	miners, err := service.ListActiveMiners(ctx)
	if err != nil {
		t.Fatalf("ListActiveMiners failed: %v", err)
	}
	if len(miners) != 2 {
		t.Fatalf("Expected 2 active miners, got %d", len(miners))
	}
	for _, m := range miners {
		if m.Id == "idle" {
			t.Error("Inactive account listed as miner")
		}
	}
}

func TestApplyAccrual_CreditsAndAdvancesBase(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	mustCreateAccount(t, service, "miner")
	if _, err := service.SetMinerActive(ctx, "miner", true, base); err != nil {
		t.Fatalf("SetMinerActive failed: %v", err)
	}

	acc, err := service.ApplyAccrual(ctx, store.AccrualParams{
		AccountId:          "miner",
		Reward:             mustDecimal(t, "5"),
		ExpectedLastReward: base,
		Advance:            5 * time.Hour,
	})
	if err != nil {
		t.Fatalf("ApplyAccrual failed: %v", err)
	}

	if !acc.StarBalance.Equal(mustDecimal(t, "5")) {
		t.Errorf("Expected 5 stars, got %s", acc.StarBalance)
	}
	if !acc.Miner.TotalEarned.Equal(mustDecimal(t, "5")) {
		t.Errorf("Expected miner total 5, got %s", acc.Miner.TotalEarned)
	}
	if !acc.Miner.LastRewardAt.Equal(base.Add(5 * time.Hour)) {
		t.Errorf("Expected base advanced to %s, got %s", base.Add(5*time.Hour), acc.Miner.LastRewardAt)
	}
}

func TestApplyAccrual_StaleBaseIsRejected(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	mustCreateAccount(t, service, "miner")
	if _, err := service.SetMinerActive(ctx, "miner", true, base); err != nil {
		t.Fatalf("SetMinerActive failed: %v", err)
	}

	params := store.AccrualParams{
		AccountId:          "miner",
		Reward:             mustDecimal(t, "3"),
		ExpectedLastReward: base,
		Advance:            3 * time.Hour,
	}
	if _, err := service.ApplyAccrual(ctx, params); err != nil {
		t.Fatalf("First accrual failed: %v", err)
	}

	// Re-applying the same computation must fail, not pay again.
	_, err := service.ApplyAccrual(ctx, params)
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("Expected ErrVersionConflict on stale base, got %v", err)
	}

	acc, _ := service.GetAccount(ctx, "miner")
	if !acc.StarBalance.Equal(mustDecimal(t, "3")) {
		t.Errorf("Stale accrual double-paid, balance %s", acc.StarBalance)
	}
}

func TestApplyAccrual_InactiveMiner(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	mustCreateAccount(t, service, "miner")
	if _, err := service.SetMinerActive(ctx, "miner", true, base); err != nil {
		t.Fatalf("SetMinerActive failed: %v", err)
	}
	if _, err := service.SetMinerActive(ctx, "miner", false, base.Add(time.Hour)); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	_, err := service.ApplyAccrual(ctx, store.AccrualParams{
		AccountId:          "miner",
		Reward:             mustDecimal(t, "1"),
		ExpectedLastReward: base,
		Advance:            time.Hour,
	})
	if !errors.Is(err, store.ErrMinerInactive) {
		t.Fatalf("Expected ErrMinerInactive, got %v", err)
	}
}
