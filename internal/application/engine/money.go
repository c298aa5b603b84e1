package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/alejandrodnm/ghostbot/internal/domain"
)

// Money defaults match a conservative single-recovery setup.
const (
	DefaultInitialStake     = 10.0
	DefaultTargetProfit     = 50.0
	DefaultStopLoss         = 50.0
	DefaultPayoutPercent    = 95.0
	DefaultMaxRecoverySteps = 4
	DefaultMaxEntryLosses   = 1
)

// MoneyManager sizes stakes and runs the win/loss state machine.
// It is not safe for concurrent use; the engine serializes access.
type MoneyManager struct {
	cfg   domain.MoneyConfig
	state domain.MoneyState
}

// NewMoneyManager starts a fresh state at the initial stake.
func NewMoneyManager(cfg domain.MoneyConfig) *MoneyManager {
	base := domain.Round2(cfg.InitialStake)
	return &MoneyManager{
		cfg: cfg,
		state: domain.MoneyState{
			CurrentStake: base,
			BaseStake:    base,
		},
	}
}

// State returns a copy of the current state.
func (m *MoneyManager) State() domain.MoneyState { return m.state }

// Config returns the thresholds in use.
func (m *MoneyManager) Config() domain.MoneyConfig { return m.cfg }

// EntryStake is always the base stake.
func (m *MoneyManager) EntryStake() float64 { return m.state.BaseStake }

// RecoveryStake is round2(accumulatedLoss * 100 / payoutPercent), with no floor.
func (m *MoneyManager) RecoveryStake() float64 {
	return domain.RecoveryStakeFor(m.state.AccumulatedLoss, m.cfg.PayoutPercent)
}

// StakeFor returns the stake a new order of the given strategy would use.
func (m *MoneyManager) StakeFor(strategy domain.Strategy) float64 {
	if strategy == domain.StrategyRecovery {
		return m.RecoveryStake()
	}
	return m.EntryStake()
}

// Apply records one settled trade and returns a stop reason when the run
// must end. profit is the broker's net profit; a win reported with no profit
// is valued at the configured payout.
func (m *MoneyManager) Apply(strategy domain.Strategy, won bool, stake, profit float64) *domain.StopReason {
	stake = domain.Round2(stake)
	s := &m.state
	s.TotalStaked = domain.AddMoney(s.TotalStaked, stake)

	if won {
		if profit <= 0 {
			profit = domain.WinProfit(stake, m.cfg.PayoutPercent)
		}
		s.WinCount++
		s.TotalPL = domain.AddMoney(s.TotalPL, profit)
		s.TotalPayout = domain.AddMoney(s.TotalPayout, domain.AddMoney(stake, profit))
	} else {
		s.LossCount++
		s.TotalPL = domain.AddMoney(s.TotalPL, -stake)
	}

	var stop *domain.StopReason
	switch {
	case strategy == domain.StrategyEntry && won:
		s.ConsecutiveEntryLosses = 0

	case strategy == domain.StrategyEntry:
		s.ConsecutiveEntryLosses++
		s.AccumulatedLoss = domain.AddMoney(s.AccumulatedLoss, stake)
		// Any entry loss restarts the ladder at step 1.
		s.RecoveryStepCount = 1
		s.CurrentStake = m.RecoveryStake()
		if s.ConsecutiveEntryLosses >= m.cfg.MaxEntryLosses && !s.EntryBlocked {
			s.EntryBlocked = true
			slog.Info("money: entry blocked", "consecutive_losses", s.ConsecutiveEntryLosses)
		}

	case won:
		s.CurrentStake = s.BaseStake
		s.RecoveryStepCount = 0
		s.AccumulatedLoss = 0
		s.EntryBlocked = false
		s.ConsecutiveEntryLosses = 0

	default:
		s.RecoveryStepCount++
		s.AccumulatedLoss = domain.AddMoney(s.AccumulatedLoss, stake)
		s.CurrentStake = m.RecoveryStake()
		switch {
		case math.Abs(s.TotalPL) >= m.cfg.StopLoss:
			stop = m.stop(domain.StopLossHit, fmt.Sprintf("|P&L| %.2f reached stop loss %.2f", math.Abs(s.TotalPL), m.cfg.StopLoss))
		case s.RecoveryStepCount > m.cfg.MaxRecoverySteps:
			stop = m.stop(domain.StopMaxRecovery, fmt.Sprintf("recovery step %d exceeds %d", s.RecoveryStepCount, m.cfg.MaxRecoverySteps))
		}
	}

	if stop == nil && s.TotalPL >= m.cfg.TargetProfit {
		stop = m.stop(domain.StopTargetProfit, fmt.Sprintf("P&L %.2f reached target %.2f", s.TotalPL, m.cfg.TargetProfit))
	}

	slog.Info("money: settled",
		"strategy", strategy,
		"won", won,
		"stake", stake,
		"total_pl", s.TotalPL,
		"phase", s.Phase(),
		"recovery_step", s.RecoveryStepCount,
		"accumulated_loss", s.AccumulatedLoss,
		"next_stake", s.CurrentStake,
		"entry_blocked", s.EntryBlocked,
	)
	return stop
}

func (m *MoneyManager) stop(kind domain.StopKind, detail string) *domain.StopReason {
	return &domain.StopReason{Kind: kind, TotalPL: m.state.TotalPL, Detail: detail}
}
