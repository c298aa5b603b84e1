package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyConfig holds the staking and stop thresholds.
type MoneyConfig struct {
	InitialStake     float64
	TargetProfit     float64
	StopLoss         float64
	PayoutPercent    float64 // e.g. 95 means a win pays 95% of stake
	MaxRecoverySteps int
	MaxEntryLosses   int
}

// Validate rejects thresholds that would make the state machine meaningless.
func (c MoneyConfig) Validate() error {
	if c.InitialStake <= 0 {
		return fmt.Errorf("initial stake must be > 0, got %.2f", c.InitialStake)
	}
	if c.PayoutPercent <= 0 {
		return fmt.Errorf("payout percent must be > 0, got %.2f", c.PayoutPercent)
	}
	if c.TargetProfit <= 0 {
		return fmt.Errorf("target profit must be > 0, got %.2f", c.TargetProfit)
	}
	if c.StopLoss <= 0 {
		return fmt.Errorf("stop loss must be > 0, got %.2f", c.StopLoss)
	}
	if c.MaxRecoverySteps <= 0 {
		return fmt.Errorf("max recovery steps must be > 0, got %d", c.MaxRecoverySteps)
	}
	if c.MaxEntryLosses <= 0 {
		return fmt.Errorf("max entry losses must be > 0, got %d", c.MaxEntryLosses)
	}
	return nil
}

// MoneyPhase is the money-management state. EntryBlocked is orthogonal to it.
type MoneyPhase string

const (
	PhaseEntry    MoneyPhase = "ENTRY_ACTIVE"
	PhaseRecovery MoneyPhase = "RECOVERY_ACTIVE"
)

// MoneyState is the running money-management state of one bot run.
type MoneyState struct {
	CurrentStake           float64
	BaseStake              float64
	AccumulatedLoss        float64
	ConsecutiveEntryLosses int
	RecoveryStepCount      int
	TotalPL                float64
	WinCount               int
	LossCount              int
	EntryBlocked           bool
	TotalStaked            float64
	TotalPayout            float64
}

// Phase derives the state from the recovery step counter.
func (s MoneyState) Phase() MoneyPhase {
	if s.RecoveryStepCount > 0 {
		return PhaseRecovery
	}
	return PhaseEntry
}

// WinRate is the percentage of settled trades that won.
func (s MoneyState) WinRate() float64 {
	total := s.WinCount + s.LossCount
	if total == 0 {
		return 0
	}
	return float64(s.WinCount) * 100 / float64(total)
}

// StopKind names why a run ended.
type StopKind string

const (
	StopLossHit      StopKind = "stop_loss"
	StopMaxRecovery  StopKind = "max_recovery_steps"
	StopTargetProfit StopKind = "target_profit"
	StopUser         StopKind = "user"
)

// StopReason is the terminal event of a run.
type StopReason struct {
	Kind    StopKind
	TotalPL float64
	Detail  string
}

// Success reports whether the run ended by reaching its target.
func (r StopReason) Success() bool { return r.Kind == StopTargetProfit }

func (r StopReason) String() string {
	return fmt.Sprintf("%s (P&L %.2f): %s", r.Kind, r.TotalPL, r.Detail)
}

// Round2 rounds to 2 decimals, half away from zero (half-up for stakes).
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// AddMoney sums amounts exactly and rounds the result to cents.
func AddMoney(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// RecoveryStakeFor sizes a recovery stake so a win at payoutPercent recovers
// accumulatedLoss: round2(accumulatedLoss * 100 / payoutPercent).
func RecoveryStakeFor(accumulatedLoss, payoutPercent float64) float64 {
	if payoutPercent <= 0 {
		return 0
	}
	return decimal.NewFromFloat(accumulatedLoss).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromFloat(payoutPercent)).
		Round(2).
		InexactFloat64()
}

// WinProfit is the net profit of a winning stake at payoutPercent.
func WinProfit(stake, payoutPercent float64) float64 {
	return decimal.NewFromFloat(stake).
		Mul(decimal.NewFromFloat(payoutPercent)).
		Div(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

// StakeCents converts a stake to integer cents for exact key comparisons.
func StakeCents(stake float64) int64 {
	return decimal.NewFromFloat(stake).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
