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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"star-economy-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	opTimeout, err := getEnvDuration("DB_OP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := getEnvDuration("CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	accrualInterval, err := getEnvDuration("ACCRUAL_INTERVAL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	accrualUnit, err := getEnvDuration("ACCRUAL_UNIT_DURATION", time.Hour)
	if err != nil {
		return nil, err
	}

	seedCoinReserve, err := getEnvDecimal("SEED_COIN_RESERVE", "100000")
	if err != nil {
		return nil, err
	}

	seedStarReserve, err := getEnvDecimal("SEED_STAR_RESERVE", "100000")
	if err != nil {
		return nil, err
	}

	commissionRate, err := getEnvDecimal("EXCHANGE_COMMISSION_RATE", "0.025")
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "economy.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			OpTimeout:       opTimeout,
			SeedCoinReserve: seedCoinReserve,
			SeedStarReserve: seedStarReserve,
		},
		Cache: models.CacheConfig{
			TTL: cacheTTL,
		},
		Scheduler: models.SchedulerConfig{
			Interval:     accrualInterval,
			UnitDuration: accrualUnit,
		},
		Exchange: models.ExchangeConfig{
			CommissionRate: commissionRate,
		},
		ParamsFile: getEnvString("ECONOMY_PARAMS_FILE", "economy.yaml"),
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
	}
	return d, nil
}
