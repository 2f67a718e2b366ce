package common

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"star-economy-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type rawEconomyParams struct {
	Farm struct {
		Reward   string `yaml:"reward"`
		Currency string `yaml:"currency"`
		Cooldown string `yaml:"cooldown"`
	} `yaml:"farm"`
	DailyBonus struct {
		BaseReward string `yaml:"base_reward"`
		PerStreak  string `yaml:"per_streak"`
		Currency   string `yaml:"currency"`
		StreakCap  int    `yaml:"streak_cap"`
		Cooldown   string `yaml:"cooldown"`
		ResetAfter string `yaml:"reset_after"`
	} `yaml:"daily_bonus"`
	Mining struct {
		RewardPerUnit string `yaml:"reward_per_unit"`
		Multiplier    string `yaml:"multiplier"`
	} `yaml:"mining"`
	Referral struct {
		Bonus string `yaml:"bonus"`
	} `yaml:"referral"`
}

// EconomyParams are the reward rules read from the economy parameter file.
type EconomyParams struct {
	FarmReward   decimal.Decimal
	FarmCurrency models.Currency
	FarmCooldown time.Duration

	BonusBase       decimal.Decimal
	BonusPerStreak  decimal.Decimal
	BonusCurrency   models.Currency
	BonusStreakCap  int
	BonusCooldown   time.Duration
	BonusResetAfter time.Duration

	MiningRewardPerUnit decimal.Decimal
	MiningMultiplier    decimal.Decimal

	ReferralBonus decimal.Decimal
}

// LoadEconomyParams reads and validates the economy parameter file.
func LoadEconomyParams(paramsFile string) (*EconomyParams, error) {
	var paramsPath string
	if filepath.IsAbs(paramsFile) {
		paramsPath = paramsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		paramsPath = filepath.Join(wd, paramsFile)
	}

	data, err := os.ReadFile(paramsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", paramsFile, err)
	}

	var raw rawEconomyParams
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", paramsFile, err)
	}

	params := &EconomyParams{
		BonusStreakCap: raw.DailyBonus.StreakCap,
	}

	if params.FarmReward, err = parsePositiveDecimal("farm.reward", raw.Farm.Reward); err != nil {
		return nil, err
	}
	if params.FarmCurrency, err = parseCurrency("farm.currency", raw.Farm.Currency); err != nil {
		return nil, err
	}
	if params.FarmCooldown, err = parseDuration("farm.cooldown", raw.Farm.Cooldown); err != nil {
		return nil, err
	}

	if params.BonusBase, err = parsePositiveDecimal("daily_bonus.base_reward", raw.DailyBonus.BaseReward); err != nil {
		return nil, err
	}
	if params.BonusPerStreak, err = parseDecimal("daily_bonus.per_streak", raw.DailyBonus.PerStreak); err != nil {
		return nil, err
	}
	if params.BonusCurrency, err = parseCurrency("daily_bonus.currency", raw.DailyBonus.Currency); err != nil {
		return nil, err
	}
	if params.BonusCooldown, err = parseDuration("daily_bonus.cooldown", raw.DailyBonus.Cooldown); err != nil {
		return nil, err
	}
	if params.BonusResetAfter, err = parseDuration("daily_bonus.reset_after", raw.DailyBonus.ResetAfter); err != nil {
		return nil, err
	}
	if params.BonusResetAfter < params.BonusCooldown {
		return nil, fmt.Errorf("daily_bonus.reset_after %v cannot be shorter than cooldown %v",
			params.BonusResetAfter, params.BonusCooldown)
	}

	if params.MiningRewardPerUnit, err = parsePositiveDecimal("mining.reward_per_unit", raw.Mining.RewardPerUnit); err != nil {
		return nil, err
	}
	if raw.Mining.Multiplier == "" {
		params.MiningMultiplier = decimal.NewFromInt(1)
	} else if params.MiningMultiplier, err = parsePositiveDecimal("mining.multiplier", raw.Mining.Multiplier); err != nil {
		return nil, err
	}

	if params.ReferralBonus, err = parseDecimal("referral.bonus", raw.Referral.Bonus); err != nil {
		return nil, err
	}
	if params.ReferralBonus.IsNegative() {
		return nil, fmt.Errorf("referral.bonus cannot be negative, got %s", params.ReferralBonus)
	}

	return params, nil
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, fmt.Errorf("%s is missing", field)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a decimal: %w", field, value, err)
	}
	return d, nil
}

func parsePositiveDecimal(field, value string) (decimal.Decimal, error) {
	d, err := parseDecimal(field, value)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be positive, got %s", field, d)
	}
	return d, nil
}

func parseCurrency(field, value string) (models.Currency, error) {
	c := models.Currency(value)
	if !c.Valid() {
		return "", fmt.Errorf("%s: unknown currency %q", field, value)
	}
	return c, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("%s is missing", field)
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", field, d)
	}
	return d, nil
}
