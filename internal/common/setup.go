package common

import (
	"context"
	"log"
	"strings"

	"star-economy-go/internal/api"
	"star-economy-go/internal/cache"
	"star-economy-go/internal/database"
	"star-economy-go/internal/exchange"
	"star-economy-go/internal/models"
	"star-economy-go/internal/notify"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("Loaded environment variables from .env file")
	}
}

// Services bundles the wired economy core.
type Services struct {
	DbService *database.Service
	Cache     *cache.AccountCache
	Engine    *exchange.Engine
	Notifier  notify.Dispatcher
	Economy   *api.EconomyService
	Params    *EconomyParams
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices builds the full economy core: store, cache, exchange
// engine, notifier, and the operation service.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Loading economy parameters", zap.String("file", cfg.ParamsFile))
	params, err := LoadEconomyParams(cfg.ParamsFile)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	accountCache := cache.New(dbService, cfg.Cache.TTL)
	engine := exchange.NewEngine(dbService, accountCache, cfg.Exchange.CommissionRate)
	notifier := notify.LogDispatcher{}

	economy := api.NewEconomyService(api.EconomyServiceConfig{
		Store:     dbService,
		Cache:     accountCache,
		Engine:    engine,
		Notifier:  notifier,
		OpTimeout: cfg.Database.OpTimeout,
		Params: api.Params{
			FarmReward:      params.FarmReward,
			FarmCurrency:    params.FarmCurrency,
			FarmCooldown:    params.FarmCooldown,
			BonusBase:       params.BonusBase,
			BonusPerStreak:  params.BonusPerStreak,
			BonusCurrency:   params.BonusCurrency,
			BonusStreakCap:  params.BonusStreakCap,
			BonusCooldown:   params.BonusCooldown,
			BonusResetAfter: params.BonusResetAfter,
			ReferralBonus:   params.ReferralBonus,
		},
	})

	return &Services{
		DbService: dbService,
		Cache:     accountCache,
		Engine:    engine,
		Notifier:  notifier,
		Economy:   economy,
		Params:    params,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service.
// Useful for read-only tools like the balance report.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
