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
	"os"
	"os/signal"
	"syscall"
	"time"

	"star-economy-go/internal/accrual"
	"star-economy-go/internal/common"
	"star-economy-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	paramsFlag := flag.String("params", "", "Optional path to the economy parameter file (overrides ECONOMY_PARAMS_FILE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}
	if *paramsFlag != "" {
		cfg.ParamsFile = *paramsFlag
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting economy service")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	scheduler := accrual.NewScheduler(accrual.SchedulerConfig{
		Store:         services.DbService,
		Cache:         services.Cache,
		Notifier:      services.Notifier,
		Interval:      cfg.Scheduler.Interval,
		UnitDuration:  cfg.Scheduler.UnitDuration,
		RewardPerUnit: services.Params.MiningRewardPerUnit,
		Multiplier:    services.Params.MiningMultiplier,
	})
	scheduler.Start(ctx)

	zap.L().Info("Economy service running",
		zap.Duration("accrual_interval", cfg.Scheduler.Interval),
		zap.Duration("accrual_unit", cfg.Scheduler.UnitDuration),
		zap.Duration("cache_ttl", cfg.Cache.TTL))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping scheduler...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Scheduler stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
