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

package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"star-economy-go/internal/models"

	"github.com/shopspring/decimal"
)

const validParamsYaml = `
farm:
  reward: "25"
  currency: "coins"
  cooldown: "4h"
daily_bonus:
  base_reward: "10"
  per_streak: "5"
  currency: "coins"
  streak_cap: 7
  cooldown: "20h"
  reset_after: "48h"
mining:
  reward_per_unit: "1"
referral:
  bonus: "10"
`

func writeParamsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "economy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write params file: %v", err)
	}
	return path
}

func TestLoadEconomyParams_Valid(t *testing.T) {
	path := writeParamsFile(t, validParamsYaml)

	params, err := LoadEconomyParams(path)
	if err != nil {
		t.Fatalf("LoadEconomyParams failed: %v", err)
	}

	if !params.FarmReward.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Expected farm reward 25, got %s", params.FarmReward)
	}
	if params.FarmCurrency != models.CurrencyCoins {
		t.Errorf("Expected coins farm currency, got %s", params.FarmCurrency)
	}
	if params.FarmCooldown != 4*time.Hour {
		t.Errorf("Expected 4h farm cooldown, got %v", params.FarmCooldown)
	}
	if params.BonusStreakCap != 7 {
		t.Errorf("Expected streak cap 7, got %d", params.BonusStreakCap)
	}
	if params.BonusResetAfter != 48*time.Hour {
		t.Errorf("Expected 48h reset window, got %v", params.BonusResetAfter)
	}
	// Omitted multiplier defaults to 1.
	if !params.MiningMultiplier.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected default multiplier 1, got %s", params.MiningMultiplier)
	}
}

func TestLoadEconomyParams_MissingFile(t *testing.T) {
	if _, err := LoadEconomyParams(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestLoadEconomyParams_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "negative farm reward",
			yaml: `
farm:
  reward: "-5"
  currency: "coins"
  cooldown: "4h"
daily_bonus:
  base_reward: "10"
  per_streak: "5"
  currency: "coins"
  cooldown: "20h"
  reset_after: "48h"
mining:
  reward_per_unit: "1"
referral:
  bonus: "10"
`,
		},
		{
			name: "unknown currency",
			yaml: `
farm:
  reward: "25"
  currency: "gems"
  cooldown: "4h"
daily_bonus:
  base_reward: "10"
  per_streak: "5"
  currency: "coins"
  cooldown: "20h"
  reset_after: "48h"
mining:
  reward_per_unit: "1"
referral:
  bonus: "10"
`,
		},
		{
			name: "reset shorter than cooldown",
			yaml: `
farm:
  reward: "25"
  currency: "coins"
  cooldown: "4h"
daily_bonus:
  base_reward: "10"
  per_streak: "5"
  currency: "coins"
  cooldown: "20h"
  reset_after: "10h"
mining:
  reward_per_unit: "1"
referral:
  bonus: "10"
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeParamsFile(t, tc.yaml)
			if _, err := LoadEconomyParams(path); err == nil {
				t.Errorf("Expected validation error for %s", tc.name)
			}
		})
	}
}
