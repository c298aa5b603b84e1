package engine

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/application/scanner"
	"github.com/alejandrodnm/ghostbot/internal/domain"
)

const (
	DefaultBotName       = "ghost_ai"
	DefaultScanCooldown  = time.Second
	DefaultSweepInterval = 30 * time.Second
	DefaultInboxSize     = 1024
)

// Config holds everything the engine needs for one bot.
type Config struct {
	Bot                string
	Money              domain.MoneyConfig
	Entry              domain.StrategyCondition
	Recovery           domain.StrategyCondition
	VirtualHook        domain.VirtualHookConfig
	Stats              scanner.StatsConfig
	MarketPrefixes     []string
	ScanCooldown       time.Duration
	MaxConcurrent      int
	LockTTL            time.Duration
	SweepInterval      time.Duration
	StaleContractAfter time.Duration
	InboxSize          int
}

// DefaultConfig returns the stock Entry/Recovery setup: Entry buys OVER 2
// after four digits <= 3 with over2 >= 70%; Recovery buys UNDER 5 after six
// digits <= 4 with over5 >= 45%.
func DefaultConfig() Config {
	return Config{
		Bot: DefaultBotName,
		Money: domain.MoneyConfig{
			InitialStake:     DefaultInitialStake,
			TargetProfit:     DefaultTargetProfit,
			StopLoss:         DefaultStopLoss,
			PayoutPercent:    DefaultPayoutPercent,
			MaxRecoverySteps: DefaultMaxRecoverySteps,
			MaxEntryLosses:   DefaultMaxEntryLosses,
		},
		Entry: domain.StrategyCondition{
			UseDigitCheck:    true,
			DigitWindow:      4,
			MaxDigit:         3,
			DigitOperator:    domain.OpLessEqual,
			UsePercentage:    true,
			Prediction:       2,
			PercentThreshold: 70,
			PercentOperator:  domain.OpGreaterEqual,
			ContractType:     domain.ContractOver,
		},
		Recovery: domain.StrategyCondition{
			UseDigitCheck:    true,
			DigitWindow:      6,
			MaxDigit:         4,
			DigitOperator:    domain.OpLessEqual,
			UsePercentage:    true,
			Prediction:       5,
			PercentThreshold: 45,
			PercentOperator:  domain.OpGreaterEqual,
			ContractType:     domain.ContractUnder,
		},
		VirtualHook: domain.VirtualHookConfig{
			TriggerType:     domain.TriggerLoss,
			TriggerCount:    2,
			ResetOnOpposite: true,
		},
		Stats: scanner.StatsConfig{
			ShortWindow:    scanner.DefaultShortWindow,
			LongWindow:     scanner.DefaultLongWindow,
			AnalysisDigits: scanner.DefaultAnalysisDigits,
		},
		ScanCooldown:       DefaultScanCooldown,
		MaxConcurrent:      DefaultMaxConcurrent,
		LockTTL:            DefaultLockTTL,
		SweepInterval:      DefaultSweepInterval,
		StaleContractAfter: DefaultStaleContractAfter,
		InboxSize:          DefaultInboxSize,
	}
}

// applyDefaults fills zero-valued tuning knobs. Money and rule thresholds
// are never defaulted here: a zero there is a configuration error.
func (c *Config) applyDefaults() {
	if c.Bot == "" {
		c.Bot = DefaultBotName
	}
	if c.Stats.ShortWindow <= 0 {
		c.Stats.ShortWindow = scanner.DefaultShortWindow
	}
	if c.Stats.LongWindow <= 0 {
		c.Stats.LongWindow = scanner.DefaultLongWindow
	}
	if c.Stats.AnalysisDigits <= 0 {
		c.Stats.AnalysisDigits = scanner.DefaultAnalysisDigits
	}
	if c.ScanCooldown <= 0 {
		c.ScanCooldown = DefaultScanCooldown
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultLockTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.StaleContractAfter <= 0 {
		c.StaleContractAfter = DefaultStaleContractAfter
	}
	if c.InboxSize <= 0 {
		c.InboxSize = DefaultInboxSize
	}
}

// Validate returns a *domain.ConfigError for the first invalid field.
func (c Config) Validate() error {
	if err := c.Money.Validate(); err != nil {
		return &domain.ConfigError{Field: "money", Err: err}
	}
	if err := c.Entry.Validate(); err != nil {
		return &domain.ConfigError{Field: "entry", Err: err}
	}
	if err := c.Recovery.Validate(); err != nil {
		return &domain.ConfigError{Field: "recovery", Err: err}
	}
	if err := c.VirtualHook.Validate(); err != nil {
		return &domain.ConfigError{Field: "virtual_hook", Err: err}
	}
	for _, rule := range []struct {
		name string
		cond domain.StrategyCondition
	}{{"entry", c.Entry}, {"recovery", c.Recovery}} {
		if cond := rule.cond; cond.UseDigitCheck && cond.DigitWindow > c.Stats.ShortWindow {
			return &domain.ConfigError{
				Field: rule.name,
				Err:   fmt.Errorf("digit window %d exceeds short window %d", cond.DigitWindow, c.Stats.ShortWindow),
			}
		}
	}
	return nil
}
