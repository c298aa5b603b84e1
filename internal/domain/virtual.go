package domain

import (
	"fmt"
	"time"
)

// TriggerType selects which virtual streak arms real execution.
type TriggerType string

const (
	TriggerWin  TriggerType = "WIN"
	TriggerLoss TriggerType = "LOSS"
)

// VirtualHookConfig gates real execution behind a streak of simulated trades.
type VirtualHookConfig struct {
	Enabled         bool
	TriggerType     TriggerType
	TriggerCount    int
	ResetOnOpposite bool
}

// Validate only checks an enabled hook.
func (c VirtualHookConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.TriggerType != TriggerWin && c.TriggerType != TriggerLoss {
		return fmt.Errorf("virtual hook trigger type must be WIN or LOSS, got %q", c.TriggerType)
	}
	if c.TriggerCount <= 0 {
		return fmt.Errorf("virtual hook trigger count must be > 0, got %d", c.TriggerCount)
	}
	return nil
}

// VirtualStreak counts consecutive simulated outcomes for a (bot, symbol).
type VirtualStreak struct {
	Wins   int
	Losses int
}

// VirtualOrder is a simulated trade waiting for the next tick of its symbol.
type VirtualOrder struct {
	ID         string
	Bot        string
	Symbol     string
	Action     ContractType
	Barrier    int
	EntryQuote float64
	PlacedAt   time.Time
}

// VirtualResult is the outcome of a VirtualOrder.
type VirtualResult struct {
	Order     VirtualOrder
	Won       bool
	ExitDigit int
	ExitQuote float64
	Streak    VirtualStreak
	SettledAt time.Time
}
