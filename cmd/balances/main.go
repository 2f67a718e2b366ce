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

	"star-economy-go/internal/common"
	"star-economy-go/internal/config"
	"star-economy-go/internal/models"

	"go.uber.org/zap"
)

func printAccount(acc *models.Account) {
	fmt.Printf("\n┌─ Account: %s\n", acc.Id)
	fmt.Printf("│  Stars:  %s\n", acc.StarBalance.String())
	fmt.Printf("│  Coins:  %s (lifetime earned: %s)\n", acc.CoinBalance.String(), acc.TotalEarnedCoins.String())
	fmt.Printf("│  Streak: %d\n", acc.DailyStreak)
	if acc.Miner.Active {
		fmt.Printf("│  Miner:  active, earned %s, last reward %s\n",
			acc.Miner.TotalEarned.String(), acc.Miner.LastRewardAt.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Printf("│  Miner:  inactive\n")
	}
	if acc.Title != "" {
		fmt.Printf("│  Title:  %s\n", acc.Title)
	}
	if acc.Status != "" {
		fmt.Printf("│  Status: %s\n", acc.Status)
	}
	fmt.Printf("│  Version: %d, updated %s\n", acc.Version, acc.UpdatedAt.Format("2006-01-02 15:04:05"))
	common.PrintBoxSeparator(78)
}

func printHistory(entries []models.LedgerEntry) {
	for i, entry := range entries {
		symbol := common.BoxPrefix(i == len(entries)-1)
		fmt.Printf("%s %-18s %10s %-5s (%s -> %s) %s\n",
			symbol, entry.EntryType, entry.Amount.String(), entry.Currency,
			entry.BalanceBefore.String(), entry.BalanceAfter.String(),
			entry.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountFlag := flag.String("account", "", "Account id to inspect (required)")
	historyFlag := flag.Int("history", 10, "Number of ledger entries to show")
	flag.Parse()

	if *accountFlag == "" {
		logger.Fatal("Missing required -account flag")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	acc, err := dbService.GetAccount(ctx, *accountFlag)
	if err != nil {
		logger.Fatal("Failed to load account", zap.String("account_id", *accountFlag), zap.Error(err))
	}

	common.PrintHeader("ACCOUNT BALANCE REPORT", common.DefaultWidth)
	printAccount(acc)

	entries, err := dbService.GetLedgerHistory(ctx, acc.Id, *historyFlag, 0)
	if err != nil {
		logger.Fatal("Failed to load ledger history", zap.Error(err))
	}
	printHistory(entries)

	reserve, err := dbService.GetReserve(ctx)
	if err != nil {
		logger.Fatal("Failed to load reserve pool", zap.Error(err))
	}

	summary := fmt.Sprintf("RESERVE: %s coins / %s stars (v%d)",
		reserve.CoinReserve.String(), reserve.StarReserve.String(), reserve.Version)
	common.PrintFooter(summary, common.DefaultWidth)
}
