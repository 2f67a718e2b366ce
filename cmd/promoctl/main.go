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

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"star-economy-go/internal/common"
	"star-economy-go/internal/config"
	"star-economy-go/internal/models"
	"star-economy-go/internal/store"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	createFlag := flag.String("create", "", "Create a promo code with this name")
	kindFlag := flag.String("kind", "stars", "Reward kind: stars, coins, title, status")
	valueFlag := flag.String("value", "", "Reward value: a decimal amount for stars/coins, text for title/status")
	limitFlag := flag.Int64("limit", 0, "Usage limit (0 = unlimited)")
	expiresFlag := flag.String("expires", "", "Optional expiry, RFC3339 (e.g. 2026-12-31T23:59:59Z)")
	listFlag := flag.Bool("list", false, "List existing promo codes")
	flag.Parse()

	if *createFlag == "" && !*listFlag {
		logger.Fatal("Nothing to do: pass -create CODE or -list")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if *createFlag != "" {
		var expiresAt *time.Time
		if *expiresFlag != "" {
			t, err := time.Parse(time.RFC3339, *expiresFlag)
			if err != nil {
				logger.Fatal("Invalid -expires value", zap.String("value", *expiresFlag), zap.Error(err))
			}
			expiresAt = &t
		}

		promo, err := dbService.CreatePromo(ctx, store.CreatePromoParams{
			Code:        *createFlag,
			RewardKind:  models.RewardKind(*kindFlag),
			RewardValue: *valueFlag,
			UsageLimit:  *limitFlag,
			ExpiresAt:   expiresAt,
		})
		if err != nil {
			logger.Fatal("Failed to create promo code", zap.Error(err))
		}
		fmt.Printf("Created promo %q: %s %s (limit %d)\n",
			promo.Code, promo.RewardKind, promo.RewardValue, promo.UsageLimit)
	}

	if *listFlag {
		promos, err := dbService.ListPromos(ctx)
		if err != nil {
			logger.Fatal("Failed to list promo codes", zap.Error(err))
		}

		common.PrintHeader("PROMO CODES", common.DefaultWidth)
		for i, promo := range promos {
			symbol := common.BoxPrefix(i == len(promos)-1)
			expiry := "never"
			if promo.ExpiresAt != nil {
				expiry = promo.ExpiresAt.Format("2006-01-02 15:04:05")
			}
			limit := "unlimited"
			if promo.UsageLimit > 0 {
				limit = fmt.Sprintf("%d", promo.UsageLimit)
			}
			fmt.Printf("%s %-20s %-6s %-12s used %d/%s, expires %s\n",
				symbol, promo.Code, promo.RewardKind, promo.RewardValue,
				promo.UsedCount, limit, expiry)
		}
		common.PrintFooter(fmt.Sprintf("TOTAL: %d codes", len(promos)), common.DefaultWidth)
	}
}
