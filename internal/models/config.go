package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Cache      CacheConfig
	Scheduler  SchedulerConfig
	Exchange   ExchangeConfig
	ParamsFile string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	OpTimeout       time.Duration
	SeedCoinReserve decimal.Decimal
	SeedStarReserve decimal.Decimal
}

// CacheConfig holds account cache settings
type CacheConfig struct {
	TTL time.Duration
}

// SchedulerConfig holds accrual scheduler settings
type SchedulerConfig struct {
	Interval     time.Duration
	UnitDuration time.Duration
}

// ExchangeConfig holds exchange engine settings
type ExchangeConfig struct {
	CommissionRate decimal.Decimal
}
